package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/db"
	"github.com/neotomadb/neotoma-loader/internal/neotoma"
	"github.com/neotomadb/neotoma-loader/internal/params"
	"github.com/neotomadb/neotoma-loader/internal/validate"
	"github.com/neotomadb/neotoma-loader/internal/validlog"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

var (
	uploadTemplate string
	uploadNearby   float64
	uploadDryRun   bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Validate a file and insert it into Neotoma",
	Long:  "Validates the file, refuses to continue on any failed check, then inserts the site, collection unit and chronologies in one transaction.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := loadResolver(uploadTemplate, cfg.Validation.AgeFields)
		if err != nil {
			return err
		}
		resolved, err := prepareUpload(ctx, res, args[0], cfg.Validation.LogDir)
		if err != nil {
			return err
		}
		if uploadDryRun {
			zap.L().Info("dry run; nothing inserted", zap.String("file", args[0]))
			return nil
		}

		pool, err := db.Connect(ctx, cfg.Neotoma.DatabaseURL, &db.PoolConfig{
			MaxConns: cfg.Neotoma.MaxConns,
			MinConns: cfg.Neotoma.MinConns,
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		return uploadBatch(ctx, pool, cfg.Neotoma.Schema, resolved, uploadNearby, os.Stdout)
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadTemplate, "template", "t", "", "template file (.yml, .yaml, .xlsx)")
	uploadCmd.Flags().Float64Var(&uploadNearby, "nearby", 0, "warn about existing sites within this many meters (0 disables)")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "validate only; do not connect to Neotoma")
	rootCmd.AddCommand(uploadCmd)
}

// prepareUpload validates file, writes its log and returns the resolved
// parameters. Any failed check stops the upload.
func prepareUpload(ctx context.Context, res *params.Resolver, file, logDir string) (*validate.Resolved, error) {
	ds, err := dataset.Read(ctx, file)
	if err != nil {
		return nil, err
	}
	rep, resolved := validate.New(res).Run(ds)
	rep.File = file

	hash, err := validlog.Hash(file)
	if err != nil {
		return nil, err
	}
	path, err := validlog.Write(logDir, file, hash, rep.Valid(), rep.String())
	if err != nil {
		return nil, err
	}
	if !rep.Valid() {
		return nil, eris.Errorf("upload: %s failed %d checks; see %s", file, rep.Failures(), path)
	}
	return resolved, nil
}

// uploadBatch inserts resolved through the Neotoma procedures and writes the
// created ids as JSON to out.
func uploadBatch(ctx context.Context, pool db.Pool, schema string, resolved *validate.Resolved, nearby float64, out io.Writer) error {
	if nearby > 0 && resolved.Site != nil {
		if sc, ok := resolved.Site.Value("geog").Scalar(); ok {
			if c, ok := sc.(value.Coordinates); ok {
				warnNearby(ctx, pool, c, nearby)
			}
		}
	}

	up := neotoma.NewUploader(neotoma.NewSink(pool, schema))
	result, err := up.Upload(ctx, resolved.Batch())
	if err != nil {
		return eris.Wrap(err, "upload")
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func warnNearby(ctx context.Context, pool db.Pool, c value.Coordinates, meters float64) {
	sites, err := neotoma.NearbySites(ctx, pool, c, meters, 0)
	if err != nil {
		zap.L().Warn("nearby site lookup failed", zap.Error(err))
		return
	}
	for _, s := range sites {
		zap.L().Warn("existing site nearby",
			zap.Int64("siteid", s.SiteID),
			zap.String("sitename", s.SiteName),
			zap.Float64("distance_m", s.Distance),
		)
	}
}
