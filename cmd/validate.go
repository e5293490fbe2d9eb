package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/params"
	"github.com/neotomadb/neotoma-loader/internal/validate"
	"github.com/neotomadb/neotoma-loader/internal/validlog"
)

var (
	validateTemplate    string
	validateLogDir      string
	validateStrict      bool
	validateForce       bool
	validateConcurrency int
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.csv>...",
	Short: "Validate upload files against a template",
	Long:  "Resolves every table of each file, writes a .valid.log next to the log directory and records the run. Files whose hash matches a clean earlier log are skipped unless --force is set.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := loadResolver(validateTemplate, cfg.Validation.AgeFields)
		if err != nil {
			return err
		}

		st, err := initRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := validateOptions{
			Template:    validateTemplate,
			LogDir:      firstNonEmpty(validateLogDir, cfg.Validation.LogDir),
			Strict:      validateStrict || cfg.Validation.Strict,
			Force:       validateForce,
			Concurrency: validateConcurrency,
		}
		if opts.Concurrency <= 0 {
			opts.Concurrency = cfg.Batch.MaxConcurrentFiles
		}

		results, err := validateFiles(ctx, res, st, opts, args)
		if err != nil {
			return err
		}
		formatValidateResults(os.Stdout, results)

		if n := countInvalid(results); n > 0 {
			return eris.Errorf("validate: %d of %d files did not validate", n, len(results))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateTemplate, "template", "t", "", "template file (.yml, .yaml, .xlsx)")
	validateCmd.Flags().StringVar(&validateLogDir, "log-dir", "", "validation log directory (default from config)")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "count a Valid: FALSE header as a failure in prior logs")
	validateCmd.Flags().BoolVar(&validateForce, "force", false, "revalidate files whose hash is unchanged")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "files validated in parallel (default from config)")
	rootCmd.AddCommand(validateCmd)
}

// runRecorder is the subset of the run store validation writes to.
type runRecorder interface {
	Start(ctx context.Context, file, template, hash string) (*validlog.Run, error)
	Complete(ctx context.Context, runID string, valid bool, errCount int) error
	Fail(ctx context.Context, runID, errMsg string) error
}

type validateOptions struct {
	Template    string
	LogDir      string
	Strict      bool
	Force       bool
	Concurrency int
}

// fileResult is the outcome for one file.
type fileResult struct {
	File     string
	RunID    string
	Skipped  bool
	Valid    bool
	Failures int
	LogPath  string
	Err      error
}

// validateFiles validates files concurrently. A file that cannot be read or
// logged is recorded as failed; the batch itself only errors when the run
// store does.
func validateFiles(ctx context.Context, res *params.Resolver, rec runRecorder, opts validateOptions, files []string) ([]fileResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	zap.L().Info("validating files",
		zap.Int("files", len(files)),
		zap.Int("concurrency", opts.Concurrency),
	)

	results := make([]fileResult, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, file := range files {
		g.Go(func() error {
			r, err := validateFile(gctx, res, rec, opts, file)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "validate files")
	}
	return results, nil
}

func validateFile(ctx context.Context, res *params.Resolver, rec runRecorder, opts validateOptions, file string) (fileResult, error) {
	log := zap.L().With(zap.String("file", file))
	out := fileResult{File: file}

	hc, err := validlog.CheckHash(opts.LogDir, file)
	if err != nil {
		out.Err = err
		log.Error("hash failed", zap.Error(err))
		return out, nil
	}

	if hc.Unchanged && !opts.Force {
		prior, err := validlog.CheckPrior(opts.LogDir, file, opts.Strict)
		if err == nil && prior.Pass {
			log.Info("file unchanged since last clean validation; skipping")
			out.Skipped, out.Valid = true, true
			out.LogPath = validlog.LogPath(opts.LogDir, file)
			return out, nil
		}
	}

	run, err := rec.Start(ctx, file, opts.Template, hc.Hash)
	if err != nil {
		return out, err
	}
	out.RunID = run.ID

	ds, err := dataset.Read(ctx, file)
	if err != nil {
		out.Err = err
		log.Error("read failed", zap.Error(err))
		return out, rec.Fail(ctx, run.ID, err.Error())
	}

	rep, _ := validate.New(res).Run(ds)
	rep.File = file
	out.Valid, out.Failures = rep.Valid(), rep.Failures()

	out.LogPath, err = validlog.Write(opts.LogDir, file, hc.Hash, out.Valid, rep.String())
	if err != nil {
		out.Err = err
		log.Error("write log failed", zap.Error(err))
		return out, rec.Fail(ctx, run.ID, err.Error())
	}

	log.Info("file validated",
		zap.Bool("valid", out.Valid),
		zap.Int("failures", out.Failures),
		zap.String("log", out.LogPath),
	)
	return out, rec.Complete(ctx, run.ID, out.Valid, out.Failures)
}

func countInvalid(results []fileResult) int {
	n := 0
	for _, r := range results {
		if !r.Valid {
			n++
		}
	}
	return n
}

// formatValidateResults writes a table of file outcomes to w.
func formatValidateResults(out io.Writer, results []fileResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tSTATUS\tFAILURES\tLOG")
	_, _ = fmt.Fprintln(w, "----\t------\t--------\t---")
	for _, r := range results {
		status := "valid"
		switch {
		case r.Err != nil:
			status = "error"
		case r.Skipped:
			status = "unchanged"
		case !r.Valid:
			status = "invalid"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.File, status, r.Failures, r.LogPath)
	}
	_ = w.Flush()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
