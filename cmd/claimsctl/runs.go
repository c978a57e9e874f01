package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-tracker/internal/app"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
	"github.com/joseph-ayodele/claims-tracker/internal/export"
	"github.com/joseph-ayodele/claims-tracker/internal/repository"
)

type runsOutput struct {
	Counts map[string]int     `json:"counts"`
	Runs   []entity.RunRecord `json:"runs"`
}

func newRunsCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var (
		limit int
		since time.Duration
		xlsx  string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.noStore {
				return common.NewAppError(common.CodeInvalid, "runs needs the run log; drop --no-store", nil)
			}
			a, err := setup(cmd.Context(), g, stderr, app.Options{WithStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.Runs.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if since > 0 {
				runs = repository.Window(runs, time.Now().Add(-since))
			}
			if xlsx != "" {
				b, err := export.NewService(a.Logger).RunsXLSX(runs)
				if err != nil {
					return err
				}
				return os.WriteFile(xlsx, b, 0o644)
			}
			counts, err := a.Runs.CountByStatus(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(stdout, runsOutput{Counts: counts, Runs: runs})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum runs to list")
	cmd.Flags().DurationVar(&since, "since", 0, "only runs started within this window, e.g. 24h")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the listing to this XLSX file instead of stdout")
	return cmd
}
