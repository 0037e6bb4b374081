package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/nbexport/internal/app"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Google and cache the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), resolved, app.WithoutBrowser())
		if err != nil {
			return err
		}
		if err := a.Login(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cached Google token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), resolved, app.WithoutBrowser())
		if err != nil {
			return err
		}
		if !logoutAll {
			return a.Logout(cmd.Context())
		}
		n, err := a.LogoutAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached token(s).\n", n)
		return nil
	},
}

var logoutAll bool

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Remove every cached token in the token directory")
}
