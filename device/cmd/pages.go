package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/templating"
)

// sampleVars fill every page variable so a preview
// shows the complete layout.
var sampleVars = templating.Vars{
	"title":       "gitlink preview",
	"provider":    "GitHub",
	"action":      "/setup",
	"ssid":        "gitlink-github-setup",
	"start_url":   "/start",
	"message":     "Authentication completed.",
	"description": "The provider refused the request.",
	"code":        "access_denied",
	"retry_url":   "/",
}

func newPagesCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Inspect the captive portal pages",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if dir != "" {
				a.engine.Pages = os.DirFS(dir)
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(
		&dir, "dir", "",
		"read <name>.html pages from this directory instead of the built-in ones",
	)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List page names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := a.engine.Names()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))

				return err
			},
		},
		newPagesPreviewCmd(a),
	)

	return cmd
}

func newPagesPreviewCmd(a *app) *cobra.Command {
	var overrides map[string]string

	cmd := &cobra.Command{
		Use:   "preview <page>",
		Short: "Render a page to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := make(templating.Vars, len(sampleVars)+len(overrides))

			for k, v := range sampleVars {
				vars[k] = v
			}

			for k, v := range overrides {
				vars[k] = v
			}

			if args[0] == templating.PageLayout {
				return fmt.Errorf(
					"%q is the frame of every page, preview a page instead: %w",
					args[0], git.ErrInvalidInput,
				)
			}

			return a.engine.Render(cmd.OutOrStdout(), args[0], vars)
		},
	}

	cmd.Flags().StringToStringVar(
		&overrides, "var", nil, "page variable as key=value (repeatable)",
	)

	return cmd
}
