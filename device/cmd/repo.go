package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/git"
)

func newRepoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories",
	}

	cmd.AddCommand(
		newRepoListCmd(a),
		newRepoGetCmd(a),
		newRepoSearchCmd(a),
		newRepoCreateCmd(a),
		newRepoDeleteCmd(a),
	)

	return cmd
}

func newRepoListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories of the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.ctl.Connect(cmd.Context())
			if err != nil {
				return err
			}

			page, err := p.ListRepositories(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), page, func(w io.Writer) error {
				return printRepos(w, page)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", git.DefaultPageSize, "maximum results")

	return cmd
}

func newRepoSearchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search public repositories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.ctl.Connect(cmd.Context())
			if err != nil {
				return err
			}

			page, err := p.SearchRepositories(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), page, func(w io.Writer) error {
				return printRepos(w, page)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", git.DefaultPageSize, "maximum results")

	return cmd
}

func newRepoGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [owner/name]",
		Short: "Show a repository, the default one when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := a.repo(argOr(args, 0))
			if err != nil {
				return err
			}

			p, err := a.ctl.Connect(cmd.Context())
			if err != nil {
				return err
			}

			r, err := p.GetRepository(cmd.Context(), ref)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), r, func(w io.Writer) error {
				_, err := fmt.Fprintf(
					w,
					"%s\n  %s\n  branch: %s  stars: %d  forks: %d"+
						"  open issues: %d  private: %t\n  %s\n",
					r.FullName, r.Description,
					r.DefaultBranch, r.Stars, r.Forks,
					r.OpenIssues, r.Private,
					r.HTMLURL,
				)

				return err
			})
		},
	}
}

func newRepoCreateCmd(a *app) *cobra.Command {
	var draft git.RepositoryDraft

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a repository for the authenticated user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.ctl.Connect(cmd.Context())
			if err != nil {
				return err
			}

			draft.Name = args[0]

			r, err := p.CreateRepository(cmd.Context(), draft)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), r, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "created %s\n  %s\n", r.FullName, r.HTMLURL)

				return err
			})
		},
	}

	cmd.Flags().StringVar(&draft.Description, "description", "", "repository description")
	cmd.Flags().BoolVar(&draft.Private, "private", false, "create a private repository")
	cmd.Flags().BoolVar(&draft.AutoInit, "init", false, "create an initial commit")

	return cmd
}

func newRepoDeleteCmd(a *app) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <owner/name>",
		Short: "Delete a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := git.ParseRepoRef(args[0])
			if err != nil {
				return err
			}

			if !confirmed {
				return fmt.Errorf(
					"refusing to delete %s without --yes: %w",
					ref, git.ErrInvalidInput,
				)
			}

			p, err := a.ctl.Connect(cmd.Context())
			if err != nil {
				return err
			}

			if err := p.DeleteRepository(cmd.Context(), ref); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", ref)

			return err
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")

	return cmd
}

func printRepos(w io.Writer, page git.Page[git.Repository]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, r := range page.Items {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}

		_, _ = fmt.Fprintf(
			tw, "%s\t%s\t%d\t%s\n",
			r.FullName, visibility, r.Stars, r.Description,
		)
	}

	if page.HasMore {
		_, _ = fmt.Fprintln(tw, "...\tmore results available\t\t")
	}

	return tw.Flush()
}
