package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-tracker/internal/app"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/pipeline"
)

func newInspectCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var mime string
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Sniff a document without extracting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g, stderr, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := stage(a, args[0], mime)
			if err != nil {
				return err
			}
			report, err := a.Processor.Inspect(cmd.Context(), u)
			if err != nil {
				return err
			}
			return writeJSON(stdout, report)
		},
	}
	cmd.Flags().StringVar(&mime, "mime", "", "declared content type (guessed from the extension when empty)")
	return cmd
}

type previewOutput struct {
	FileName            string `json:"file_name"`
	Inspection          any    `json:"inspection"`
	Pages               int    `json:"pages"`
	Method              string `json:"method"`
	CharactersExtracted int    `json:"characters_extracted"`
	TextPreview         string `json:"text_preview"`
}

func newExtractCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var mime string
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract text and print a preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g, stderr, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := stage(a, args[0], mime)
			if err != nil {
				return err
			}
			res, err := a.Processor.Preview(cmd.Context(), u)
			if err != nil {
				return err
			}
			out := previewOutput{
				FileName:            res.FileName,
				Inspection:          res.Inspection,
				CharactersExtracted: res.CharactersExtracted,
				TextPreview:         res.TextPreview,
			}
			if res.Extraction != nil {
				out.Pages = res.Extraction.Pages
				out.Method = res.Extraction.Method
			}
			return writeJSON(stdout, out)
		},
	}
	cmd.Flags().StringVar(&mime, "mime", "", "declared content type (guessed from the extension when empty)")
	return cmd
}

func newPayloadCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var mime string
	cmd := &cobra.Command{
		Use:   "payload FILE",
		Short: "Build the cleaned claim and model input without scoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g, stderr, app.Options{WithStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := stage(a, args[0], mime)
			if err != nil {
				return err
			}
			res, err := a.Processor.BuildPayload(cmd.Context(), u)
			if err != nil {
				return err
			}
			return writeJSON(stdout, res)
		},
	}
	cmd.Flags().StringVar(&mime, "mime", "", "declared content type (guessed from the extension when empty)")
	return cmd
}

func newProcessCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var mime string
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Run the full pipeline and score the claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g, stderr, app.Options{WithStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := stage(a, args[0], mime)
			if err != nil {
				return err
			}
			res, err := a.Processor.Process(cmd.Context(), u)
			if err != nil {
				return err
			}
			return writeJSON(stdout, res)
		},
	}
	cmd.Flags().StringVar(&mime, "mime", "", "declared content type (guessed from the extension when empty)")
	return cmd
}

func stage(a *app.App, path, mime string) (*pipeline.Upload, error) {
	u, err := pipeline.StageFile(a.Config.Server.UploadDir, path, mime)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalid, "cannot stage "+path, err)
	}
	return u, nil
}
