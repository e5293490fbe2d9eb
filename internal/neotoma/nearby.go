package neotoma

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/neotomadb/neotoma-loader/internal/db"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// NearbySite is an existing Neotoma site close to an uploaded one.
type NearbySite struct {
	SiteID   int64   `json:"siteid"`
	SiteName string  `json:"sitename"`
	Distance float64 `json:"distance_m"`
}

const nearbySitesSQL = `SELECT siteid, sitename, ST_Distance(geog, ST_GeogFromWKB($1)) AS dist
FROM ndb.sites
WHERE ST_DWithin(geog, ST_GeogFromWKB($1), $2)
ORDER BY dist
LIMIT $3`

// NearbySites lists sites within meters of c, closest first.
func NearbySites(ctx context.Context, pool db.Pool, c value.Coordinates, meters float64, limit int) ([]NearbySite, error) {
	pt, err := EncodePoint(c)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := pool.Query(ctx, nearbySitesSQL, pt, meters, limit)
	if err != nil {
		return nil, eris.Wrap(err, "neotoma: nearby sites")
	}
	defer rows.Close()

	var out []NearbySite
	for rows.Next() {
		var s NearbySite
		if err := rows.Scan(&s.SiteID, &s.SiteName, &s.Distance); err != nil {
			return nil, eris.Wrap(err, "neotoma: scan nearby site")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "neotoma: nearby sites iterate")
}
