package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ryo246912/bbpr/internal/bitbucket"
	"github.com/ryo246912/bbpr/internal/credential"
	"github.com/ryo246912/bbpr/internal/models"
	"github.com/ryo246912/bbpr/internal/service"
	"github.com/spf13/cobra"
)

const idArgs = "[<id>]"

func newListCmd() *cobra.Command {
	var states []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pull requests",
		Args:  cobra.NoArgs,
		RunE: withRepo(func(ctx context.Context, a *app, _ []string) error {
			filter := make([]models.PullRequestState, len(states))
			for i, s := range states {
				filter[i] = models.PullRequestState(strings.ToUpper(s))
			}
			prs, err := a.client.ListPullRequests(ctx, a.repo, filter...)
			if err != nil {
				return err
			}
			return a.printer.PullRequests(prs)
		}),
	}
	cmd.Flags().StringSliceVarP(&states, "state", "s", nil, "Filter by state: open, declined, merged, superseded")
	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view " + idArgs,
		Short: "Show a pull request with its commits, comments and activity",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			detail, err := a.service.View(ctx, id)
			if err != nil {
				return err
			}
			return a.printer.Detail(detail)
		}),
	}
}

func newActivityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activity " + idArgs,
		Short: "Show the activity log of a pull request, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			activities, err := a.client.GetPullRequestActivity(ctx, a.repo, id)
			if err != nil {
				return err
			}
			return a.printer.Activities(activities)
		}),
	}
}

func newCommentsCmd() *cobra.Command {
	var commentID int
	cmd := &cobra.Command{
		Use:   "comments " + idArgs,
		Short: "List comments on a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			if commentID > 0 {
				comment, err := a.client.GetPullRequestComment(ctx, a.repo, id, commentID)
				if err != nil {
					return err
				}
				return a.printer.Comments([]models.Comment{*comment})
			}
			comments, err := a.client.ListPullRequestComments(ctx, a.repo, id)
			if err != nil {
				return err
			}
			return a.printer.Comments(comments)
		}),
	}
	cmd.Flags().IntVar(&commentID, "id", 0, "Show only the comment with this id")
	return cmd
}

func newCommentCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "comment " + idArgs,
		Short: "Add a comment to a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			comment, err := a.service.Comment(ctx, id, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added comment %d to pull request #%d\n", comment.ID, id)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&body, "body", "b", "", "Comment text")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commits " + idArgs,
		Short: "List commits of a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			commits, err := a.client.ListPullRequestCommits(ctx, a.repo, id)
			if err != nil {
				return err
			}
			return a.printer.Commits(commits)
		}),
	}
}

func newDiffCmd() *cobra.Command {
	var patch bool
	cmd := &cobra.Command{
		Use:   "diff " + idArgs,
		Short: "Print the diff of a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			fetch := a.client.GetDiffForPullRequest
			if patch {
				fetch = a.client.GetPatchForPullRequest
			}
			text, err := fetch(ctx, a.repo, id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, text)
			return err
		}),
	}
	cmd.Flags().BoolVar(&patch, "patch", false, "Print a git patch series instead of a unified diff")
	return cmd
}

func newApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve " + idArgs,
		Short: "Approve a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			if _, err := a.service.Approve(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Approved pull request #%d\n", id)
			return nil
		}),
	}
}

func newUnapproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unapprove " + idArgs,
		Short: "Remove your approval from a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			if err := a.service.Unapprove(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed approval from pull request #%d\n", id)
			return nil
		}),
	}
}

func newDeclineCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "decline " + idArgs,
		Short: "Decline an open pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			pr, err := a.service.Decline(ctx, id, yes)
			if errors.Is(err, service.ErrCancelled) {
				fmt.Fprintln(a.out, "Decline cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pull request #%d is now %s\n", pr.ID, pr.State)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var opts models.MergeOptions
	cmd := &cobra.Command{
		Use:   "merge " + idArgs,
		Short: "Merge an open pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(ctx context.Context, a *app, args []string) error {
			id, err := a.service.ResolvePullRequestID(ctx, args)
			if err != nil {
				return err
			}
			pr, err := a.service.Merge(ctx, id, &opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pull request #%d is now %s\n", pr.ID, pr.State)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "Merge commit message")
	cmd.Flags().StringVar(&opts.MergeStrategy, "strategy", "", "merge_commit, squash or fast_forward")
	cmd.Flags().BoolVar(&opts.CloseSourceBranch, "close-source-branch", false, "Delete the source branch after merging")
	return cmd
}

type createFlags struct {
	title             string
	description       string
	source            string
	destination       string
	reviewers         []string
	closeSourceBranch bool
}

func (f *createFlags) draft() *models.PullRequest {
	draft := &models.PullRequest{
		Title:             f.title,
		Description:       f.description,
		Source:            models.Endpoint{Branch: &models.Branch{Name: f.source}},
		CloseSourceBranch: f.closeSourceBranch,
	}
	if f.destination != "" {
		draft.Destination = &models.Endpoint{Branch: &models.Branch{Name: f.destination}}
	}
	for _, r := range f.reviewers {
		if strings.HasPrefix(r, "{") {
			draft.Reviewers = append(draft.Reviewers, models.User{UUID: r})
		} else {
			draft.Reviewers = append(draft.Reviewers, models.User{AccountID: r})
		}
	}
	return draft
}

func newCreateCmd() *cobra.Command {
	var f createFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a pull request",
		Args:  cobra.NoArgs,
		RunE: withRepo(func(ctx context.Context, a *app, _ []string) error {
			pr, err := a.service.Create(ctx, f.draft())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created pull request #%d %s\n", pr.ID, pr.Title)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Description")
	cmd.Flags().StringVar(&f.source, "source", "", "Source branch")
	cmd.Flags().StringVar(&f.destination, "destination", "", "Destination branch, the repository main branch when empty")
	cmd.Flags().StringSliceVar(&f.reviewers, "reviewer", nil, "Reviewer {uuid} or account id")
	cmd.Flags().BoolVar(&f.closeSourceBranch, "close-source-branch", false, "Delete the source branch after merging")
	return cmd
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored access token",
	}

	var token string
	login := &cobra.Command{
		Use:   "login",
		Short: "Verify and store an access token in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			host := a.cfg.Host()
			if token == "" {
				if token, err = a.prompter.PromptToken(host); err != nil {
					return err
				}
			}

			client, err := bitbucket.NewClient(bitbucket.Options{
				BaseURL:     a.cfg.BaseURL,
				Credentials: bitbucket.Credentials{Token: token},
				Timeout:     a.cfg.Timeout,
				Logger:      a.log,
			})
			if err != nil {
				return err
			}
			user, err := client.GetCurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to verify token: %w", err)
			}

			if err := credential.Set(credential.TokenKey(host), token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in to %s as %s\n", host, user.DisplayName)
			return nil
		},
	}
	login.Flags().StringVar(&token, "token", "", "Access token; prompted for when empty")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			host := a.cfg.Host()
			err = credential.Delete(credential.TokenKey(host))
			if errors.Is(err, credential.ErrNotFound) {
				fmt.Fprintf(a.out, "No token stored for %s\n", host)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged out of %s\n", host)
			return nil
		},
	}

	cmd.AddCommand(login, logout)
	return cmd
}
