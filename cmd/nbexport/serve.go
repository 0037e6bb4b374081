package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperifyio/nbexport/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction relay over HTTP",
	Long: `Serves the relay protocol:

  POST /messages   {"type": "GET_EXPORT_HTML", "tabId": "..."}
  GET  /tabs
  GET  /healthz

Requests without tabId use the X-Sender-Tab header.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), resolved)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flags.ServeAddr, "addr", flags.ServeAddr, "Listen address")
}
