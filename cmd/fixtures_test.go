//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/params"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const lakeTemplate = `
apiVersion: neotoma v2.0
kind: Dataset
metadata:
  - column: Site
    neotoma: ndb.sites.sitename
    type: string
  - column: Coords
    neotoma: ndb.sites.geog
    type: coordinates (lat,long)
  - column: Handle
    neotoma: ndb.collectionunits.handle
    type: string
  - column: Depth
    neotoma: ndb.analysisunits.depth
    type: float
    rowwise: true
  - column: Age
    neotoma: ndb.chronologies.age
    type: float
    rowwise: true
    chronologyname: Default
    default: true
`

const lakeCSV = `Site,Coords,Handle,Depth,Age
Mirror Lake,"43.94,-71.69",MIRROR,1,100
Mirror Lake,"43.94,-71.69",MIRROR,2,200
`

// conflicting handles fail the collection unit check
const badLakeCSV = `Site,Coords,Handle,Depth,Age
Mirror Lake,"43.94,-71.69",MIRROR,1,100
Mirror Lake,"43.94,-71.69",MIRROR2,2,200
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func lakeResolver(t *testing.T) *params.Resolver {
	t.Helper()
	path := writeFile(t, t.TempDir(), "lake.yml", lakeTemplate)
	res, err := loadResolver(path, nil)
	require.NoError(t, err)
	return res
}
