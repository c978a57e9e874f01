package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-tracker/internal/app"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	noStore    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		writeFailure(os.Stdout, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "claimsctl",
		Short:         "Extract, featurize and score medical claim documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file overlaid on the environment")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "json", "json or text")
	root.PersistentFlags().BoolVar(&g.noStore, "no-store", false, "do not record runs in the run log")

	root.AddCommand(
		newInspectCmd(g, stdout, stderr),
		newExtractCmd(g, stdout, stderr),
		newPayloadCmd(g, stdout, stderr),
		newProcessCmd(g, stdout, stderr),
		newBatchCmd(g, stdout, stderr),
		newRunsCmd(g, stdout, stderr),
	)
	return root
}

// setup loads config and builds the app; logs go to stderr so stdout stays machine-readable.
func setup(ctx context.Context, g *globalFlags, stderr io.Writer, opts app.Options) (*app.App, error) {
	logger, err := app.NewLogger(stderr, g.logLevel, g.logFormat)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalid, "logger", err)
	}
	slog.SetDefault(logger)

	cfg, err := common.LoadConfigFile(g.configPath)
	if err != nil {
		return nil, err
	}
	opts.WithStore = opts.WithStore && !g.noStore
	return app.New(ctx, cfg, logger, opts)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type failure struct {
	Error      string `json:"error"`
	Step       string `json:"step,omitempty"`
	Class      string `json:"class"`
	HTTPStatus int    `json:"http_status"`
}

func writeFailure(w io.Writer, err error) {
	f := failure{
		Error:      err.Error(),
		Class:      string(common.Classify(err)),
		HTTPStatus: common.HTTPStatus(err),
	}
	if step, ok := common.StepOf(err); ok {
		f.Step = string(step)
	}
	if errors.Is(err, context.Canceled) {
		f.Error = "interrupted"
	}
	if werr := writeJSON(w, f); werr != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
