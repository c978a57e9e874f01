package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/claims-tracker/internal/app"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/export"
	"github.com/joseph-ayodele/claims-tracker/internal/ingest"
	"github.com/joseph-ayodele/claims-tracker/internal/pipeline"
)

type batchSummary struct {
	Dir       string  `json:"dir"`
	Out       string  `json:"out"`
	Matched   uint32  `json:"matched"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	ElapsedS  float64 `json:"elapsed_s"`
}

func newBatchCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var (
		dir        string
		out        string
		workers    int
		exts       []string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every claim document in a directory and write an XLSX report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				return common.NewAppError(common.CodeInvalid, "--dir is required", nil)
			}
			if out == "" {
				out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "claims-report.xlsx")
			}
			collector := &app.Collector{}
			a, err := setup(cmd.Context(), g, stderr, app.Options{WithStore: true, Recorder: collector})
			if err != nil {
				return err
			}
			defer a.Close()
			if workers <= 0 {
				workers = a.Config.Server.Workers
			}

			paths, stats, err := ingest.ScanDirectory(dir, exts, skipHidden)
			if err != nil {
				return common.NewAppError(common.CodeInvalid, "scan "+dir, err)
			}
			a.Logger.Info("batch.scan.ok", "dir", dir, "scanned", stats.Scanned, "matched", stats.Matched, "workers", workers)

			start := time.Now()
			summary := batchSummary{Dir: dir, Out: out, Matched: stats.Matched}
			results := make([]error, len(paths))

			// Documents are independent; each runs its own sequential pipeline.
			grp, ctx := errgroup.WithContext(cmd.Context())
			grp.SetLimit(workers)
			for i, path := range paths {
				grp.Go(func() error {
					u, err := pipeline.StageFile(a.Config.Server.UploadDir, path, "")
					if err != nil {
						results[i] = err
						return nil
					}
					_, results[i] = a.Processor.Process(ctx, u)
					return ctx.Err()
				})
			}
			waitErr := grp.Wait()

			for i, err := range results {
				if err != nil {
					summary.Failed++
					a.Logger.Warn("batch.document.failed", "path", paths[i], "class", common.Classify(err), "err", err)
					continue
				}
				summary.Succeeded++
			}

			b, err := export.NewService(a.Logger).RunsXLSX(collector.Runs())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			summary.ElapsedS = time.Since(start).Seconds()
			a.Logger.Info("batch.done",
				slog.Int("succeeded", summary.Succeeded),
				slog.Int("failed", summary.Failed),
				slog.String("out", out),
			)
			if waitErr != nil && !errors.Is(waitErr, cmd.Context().Err()) {
				return waitErr
			}
			return writeJSON(stdout, summary)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to scan (required)")
	cmd.Flags().StringVar(&out, "out", "", "output XLSX path (defaults next to --dir)")
	cmd.Flags().IntVar(&workers, "workers", 0, "documents processed concurrently (defaults to WORKERS)")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "extensions to include (defaults to pdf and image types)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	return cmd
}
