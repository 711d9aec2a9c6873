package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/git"
)

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the saved credentials against the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.ctl.TestConnection(cmd.Context())
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), u, func(w io.Writer) error {
				_, err := fmt.Fprintf(
					w, "connected to %s as %s\n",
					a.ctl.Holder().Name(), u.Login,
				)

				return err
			})
		},
	}
}

func newUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user [login]",
		Short: "Show a user, the authenticated one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.ctl.Connect(cmd.Context())
			if err != nil {
				return err
			}

			u, err := p.GetUser(cmd.Context(), argOr(args, 0))
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), u, func(w io.Writer) error {
				return printUser(w, u)
			})
		},
	}
}

func printUser(w io.Writer, u git.User) error {
	_, err := fmt.Fprintf(
		w,
		"%s (%s)\n  repos: %d  followers: %d  following: %d\n  %s\n",
		u.Login, u.Name,
		u.PublicRepos, u.Followers, u.Following,
		u.HTMLURL,
	)

	return err
}
