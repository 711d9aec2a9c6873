package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/device"
	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/settings"
)

func newConfigCmd(a *app) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change saved settings",
	}

	cmd.PersistentFlags().StringVar(
		&kindFlag, "kind", "",
		"provider: github, gitlab or gitee (default: saved)",
	)

	cmd.AddCommand(
		newConfigSetAPIURLCmd(a, &kindFlag),
		newConfigSetClientCmd(a, &kindFlag),
		newConfigSetDefaultRepoCmd(a),
		newConfigShowCmd(a),
	)

	return cmd
}

func newConfigSetAPIURLCmd(a *app, kindFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-api-url <url>",
		Short: "Point a provider at a self-hosted instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := a.kind(*kindFlag)
			if err != nil {
				return err
			}

			// A throwaway provider rejects URLs its backend
			// cannot use.
			if _, err := session.New(kind, session.Options{
				APIBaseURL: args[0],
			}); err != nil {
				return err
			}

			return a.store.Set(kind.Key(settings.SuffixAPIURL), args[0])
		},
	}
}

func newConfigSetClientCmd(a *app, kindFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-client <client-id>",
		Short: "Save OAuth application credentials",
		Long: "Save OAuth application credentials. The client secret " +
			"is read from the terminal; leave it empty for public clients.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := a.kind(*kindFlag)
			if err != nil {
				return err
			}

			prompter := device.TermPrompter{
				In:  a.stdin,
				Out: cmd.ErrOrStderr(),
			}

			secret, err := prompter.Secret(
				kind.DisplayName() + " client secret: ",
			)
			if err != nil {
				return err
			}

			values := [][2]string{
				{kind.Key(settings.SuffixClientID), args[0]},
				{settings.KeyOAuthEnabled, strconv.FormatBool(true)},
			}

			if secret != "" {
				values = append(values, [2]string{
					kind.Key(settings.SuffixClientSecret), secret,
				})
			}

			for _, kv := range values {
				if err := a.store.Set(kv[0], kv[1]); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newConfigSetDefaultRepoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default-repo <owner/name>",
		Short: "Save the repository used when none is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ref, err := git.ParseRepoRef(args[0])
			if err != nil {
				return err
			}

			return a.store.Set(settings.KeyDefaultRepo, ref.String())
		},
	}
}

// setting is one row of config show.
type setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print saved settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := collectSettings(a.store)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), rows, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

				for _, row := range rows {
					_, _ = fmt.Fprintf(tw, "%s\t%s\n", row.Key, row.Value)
				}

				return tw.Flush()
			})
		},
	}
}

func collectSettings(store settings.Store) ([]setting, error) {
	keys := []string{
		settings.KeyProvider,
		settings.KeyDefaultRepo,
		settings.KeyOAuthEnabled,
	}

	for _, kind := range session.Kinds() {
		for _, suffix := range []string{
			settings.SuffixEnabled,
			settings.SuffixAPIURL,
			settings.SuffixClientID,
			settings.SuffixClientSecret,
			settings.SuffixToken,
		} {
			keys = append(keys, kind.Key(suffix))
		}
	}

	rows := make([]setting, 0, len(keys))

	for _, key := range keys {
		val, err := settings.GetOr(store, key, "")
		if err != nil {
			return nil, err
		}

		if val == "" {
			continue
		}

		if settings.IsSecret(key) {
			val = "********"
		}

		rows = append(rows, setting{Key: key, Value: val})
	}

	return rows, nil
}
