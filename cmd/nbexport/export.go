package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/nbexport/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the chat of the target tab to a new Google Doc",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app.ValidateConfig(resolved); err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), resolved)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Export(cmd.Context(), func(s string) {
			fmt.Fprintln(cmd.ErrOrStderr(), s)
		})
		if err != nil {
			return err
		}
		switch {
		case out.Preview != "":
			fmt.Fprintln(cmd.OutOrStdout(), out.Preview)
		default:
			fmt.Fprintln(cmd.OutOrStdout(), out.URL)
		}
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&flags.Title, "title", "", "Document title (default: the page title)")
	f.BoolVar(&flags.Structured, "structured", false, "Build the document from chat runs instead of uploading HTML")
	f.BoolVar(&flags.Selection, "selection", false, "Create a plain-text document from the selection, or the block under the caret")
	f.BoolVar(&flags.Sanitize, "sanitize", false, "Filter export HTML through an allowlist before upload")
	f.BoolVar(&noOpen, "no-open", false, "Print the document URL instead of opening it")
	f.StringVar(&flags.PreviewPath, "dry-run", "", "Write a Markdown (or .html) preview to this path instead of uploading")
	f.StringVar(&flags.PDFPath, "pdf", "", "Also write the chat transcript as PDF to this path")
}
