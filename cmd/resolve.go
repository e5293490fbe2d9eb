package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/params"
)

var (
	resolveTemplate string
	resolveTables   []string
	resolveFields   []string
	resolveValues   bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file.csv>",
	Short: "Print the resolved parameters of a file as JSON",
	Long:  "Resolves the requested fields of one or more tables, or with --values the named source columns, and prints the typed result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadResolver(resolveTemplate, cfg.Validation.AgeFields)
		if err != nil {
			return err
		}
		return runResolve(cmd.Context(), os.Stdout, res, args[0], resolveTables, resolveFields, resolveValues)
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveTemplate, "template", "t", "", "template file (.yml, .yaml, .xlsx)")
	resolveCmd.Flags().StringSliceVar(&resolveTables, "table", nil, "table prefix, e.g. ndb.sites (repeatable)")
	resolveCmd.Flags().StringSliceVarP(&resolveFields, "field", "f", nil, "field or, with --values, column name (repeatable)")
	resolveCmd.Flags().BoolVar(&resolveValues, "values", false, "treat --field as source column names")
	rootCmd.AddCommand(resolveCmd)
}

// runResolve resolves file and writes indented JSON to out. One table yields
// a single object; several yield an array.
func runResolve(ctx context.Context, out io.Writer, res *params.Resolver, file string, tables, fields []string, values bool) error {
	if len(fields) == 0 {
		return eris.New("resolve: at least one --field is required")
	}
	ds, err := dataset.Read(ctx, file)
	if err != nil {
		return err
	}

	var result any
	switch {
	case values:
		result, err = res.ResolveColumns(ds, fields...)
	case len(tables) > 1:
		result, err = res.ResolveTables(ds, tables, fields...)
	case len(tables) == 1:
		result, err = res.Resolve(ds, tables[0], fields...)
	default:
		return eris.New("resolve: --table is required unless --values is set")
	}
	if err != nil {
		return eris.Wrap(err, "resolve")
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
