package main

import (
	"encoding/json"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/nbexport/internal/app"
	"github.com/hyperifyio/nbexport/internal/browser"
)

var tabsJSON bool

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List attachable browser tabs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), resolved)
		if err != nil {
			return err
		}
		defer a.Close()

		tabs, err := a.Tabs(cmd.Context())
		if err != nil {
			return err
		}
		if tabsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tabs)
		}
		renderTabs(cmd.OutOrStdout(), tabs)
		return nil
	},
}

func renderTabs(w io.Writer, tabs []browser.Tab) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "URL"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, t := range tabs {
		table.Append([]string{t.ID, t.Title, t.URL})
	}
	table.Render()
}

func init() {
	tabsCmd.Flags().BoolVar(&tabsJSON, "json", false, "Print tabs as JSON")
}
