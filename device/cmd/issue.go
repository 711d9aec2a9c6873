package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/git"
)

func newIssueCmd(a *app) *cobra.Command {
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Manage issues",
	}

	cmd.PersistentFlags().StringVar(
		&repoFlag, "repo", "",
		"owner/name (default: saved default repository)",
	)

	cmd.AddCommand(
		newIssueListCmd(a, &repoFlag),
		newIssueGetCmd(a, &repoFlag),
		newIssueCreateCmd(a, &repoFlag),
		newIssueStateCmd(a, &repoFlag, "close", "Close an issue",
			git.IssueService.CloseIssue),
		newIssueStateCmd(a, &repoFlag, "reopen", "Reopen an issue",
			git.IssueService.ReopenIssue),
		newIssueCommentCmd(a, &repoFlag),
	)

	return cmd
}

// target resolves the repository flag and connects.
func (a *app) target(
	ctx context.Context,
	repoFlag string,
) (git.Provider, git.RepoRef, error) {
	ref, err := a.repo(repoFlag)
	if err != nil {
		return nil, git.RepoRef{}, err
	}

	p, err := a.ctl.Connect(ctx)
	if err != nil {
		return nil, git.RepoRef{}, err
	}

	return p, ref, nil
}

func parseNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf(
			"issue number %q must be a positive integer: %w",
			raw, git.ErrInvalidInput,
		)
	}

	return n, nil
}

func newIssueListCmd(a *app, repoFlag *string) *cobra.Command {
	var (
		state string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := git.IssueState(strings.ToLower(state))
			if err := filter.Validate(); err != nil {
				return err
			}

			p, ref, err := a.target(cmd.Context(), *repoFlag)
			if err != nil {
				return err
			}

			page, err := p.ListIssues(cmd.Context(), ref, filter, limit)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), page, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

				for _, is := range page.Items {
					_, _ = fmt.Fprintf(
						tw, "#%d\t%s\t%s\t%s\n",
						is.Number, is.State, is.Title,
						strings.Join(is.Labels, ","),
					)
				}

				if page.HasMore {
					_, _ = fmt.Fprintln(tw, "...\tmore results available\t\t")
				}

				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", string(git.StateOpen), "open, closed or all")
	cmd.Flags().IntVar(&limit, "limit", git.DefaultPageSize, "maximum results")

	return cmd
}

func newIssueGetCmd(a *app, repoFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <number>",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber(args[0])
			if err != nil {
				return err
			}

			p, ref, err := a.target(cmd.Context(), *repoFlag)
			if err != nil {
				return err
			}

			is, err := p.GetIssue(cmd.Context(), ref, n)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), is, func(w io.Writer) error {
				return printIssue(w, is)
			})
		},
	}
}

func newIssueCreateCmd(a *app, repoFlag *string) *cobra.Command {
	var draft git.IssueDraft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := draft.Validate(); err != nil {
				return err
			}

			p, ref, err := a.target(cmd.Context(), *repoFlag)
			if err != nil {
				return err
			}

			is, err := p.CreateIssueEx(cmd.Context(), ref, draft)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), is, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "opened #%d\n  %s\n", is.Number, is.HTMLURL)

				return err
			})
		},
	}

	cmd.Flags().StringVar(&draft.Title, "title", "", "issue title")
	cmd.Flags().StringVar(&draft.Body, "body", "", "issue body")
	cmd.Flags().StringSliceVar(&draft.Labels, "label", nil, "label to apply (repeatable)")
	cmd.Flags().StringSliceVar(&draft.Assignees, "assignee", nil, "login to assign (repeatable)")
	cmd.Flags().IntVar(&draft.Milestone, "milestone", 0, "milestone number")

	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newIssueStateCmd(
	a *app,
	repoFlag *string,
	use string,
	short string,
	apply func(git.IssueService, context.Context, git.RepoRef, int) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber(args[0])
			if err != nil {
				return err
			}

			p, ref, err := a.target(cmd.Context(), *repoFlag)
			if err != nil {
				return err
			}

			if err := apply(p, cmd.Context(), ref, n); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s #%d: done\n", use, n)

			return err
		},
	}
}

func newIssueCommentCmd(a *app, repoFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <number> <body>",
		Short: "Comment on an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber(args[0])
			if err != nil {
				return err
			}

			p, ref, err := a.target(cmd.Context(), *repoFlag)
			if err != nil {
				return err
			}

			c, err := p.AddComment(cmd.Context(), ref, n, args[1])
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), c, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "commented on #%d\n  %s\n", n, c.HTMLURL)

				return err
			})
		},
	}
}

func printIssue(w io.Writer, is git.Issue) error {
	_, err := fmt.Fprintf(
		w,
		"#%d %s [%s]\n  by %s, %d comments\n  labels: %s\n  assignees: %s\n\n%s\n",
		is.Number, is.Title, is.State,
		is.Author, is.Comments,
		strings.Join(is.Labels, ", "),
		strings.Join(is.Assignees, ", "),
		is.Body,
	)

	return err
}
