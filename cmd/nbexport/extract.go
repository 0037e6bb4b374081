package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/nbexport/internal/app"
	"github.com/hyperifyio/nbexport/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract <mode>",
	Short: "Run one page extractor and print its protocol response",
	Long: `Modes: ` + modeNames() + `

The response is printed as JSON exactly as the relay returns it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := extract.ParseMode(args[0])
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), resolved)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Extract(cmd.Context(), mode)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		if !res.OK {
			return errors.New(res.Error)
		}
		return nil
	},
}

func modeNames() string {
	names := make([]string, 0, len(extract.Modes))
	for _, m := range extract.Modes {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}
