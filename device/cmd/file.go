package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/device"
)

func newFileCmd(a *app) *cobra.Command {
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "file",
		Short: "Read and publish repository files",
	}

	cmd.PersistentFlags().StringVar(
		&repoFlag, "repo", "",
		"owner/name (default: saved default repository)",
	)

	cmd.AddCommand(
		newFileGetCmd(a, &repoFlag),
		newFilePushCmd(a, &repoFlag),
	)

	return cmd
}

func newFileGetCmd(a *app, repoFlag *string) *cobra.Command {
	var gitRef, output string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print a repository file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ref, err := a.target(cmd.Context(), *repoFlag)
			if err != nil {
				return err
			}

			f, err := p.GetFile(cmd.Context(), ref, args[0], gitRef)
			if err != nil {
				return err
			}

			if output != "" {
				//nolint:gosec // the user picks the output path
				return os.WriteFile(output, f.Content, 0o644)
			}

			if a.asJSON {
				return a.emit(cmd.OutOrStdout(), f, nil)
			}

			_, err = cmd.OutOrStdout().Write(f.Content)

			return err
		},
	}

	cmd.Flags().StringVar(&gitRef, "ref", "", "branch, tag or commit (default branch when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func newFilePushCmd(a *app, repoFlag *string) *cobra.Command {
	var req device.PushRequest

	cmd := &cobra.Command{
		Use:   "push <local-file>",
		Short: "Create or update a repository file from a local one",
		Long: "Create or update a repository file from a local one. " +
			"Nothing is committed when the remote content is identical.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := a.repo(*repoFlag)
			if err != nil {
				return err
			}

			req.Repo = ref
			req.LocalPath = args[0]

			res, err := a.ctl.PushFile(cmd.Context(), req)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintf(
					w, "%s %s (%s)\n", res.Action, res.Path, res.BlobID,
				)

				return err
			})
		},
	}

	cmd.Flags().StringVar(&req.RemotePath, "path", "", "remote path (default: local file name)")
	cmd.Flags().StringVar(&req.Branch, "branch", "", "target branch (default branch when empty)")
	cmd.Flags().StringVarP(
		&req.Message, "message", "m", "",
		"commit message template; tags: {{op}} {{path}} {{name}} {{device}}",
	)

	return cmd
}
