package bitbucket

import (
	"context"
	"fmt"

	"github.com/ryo246912/bbpr/internal/models"
)

// PullRequestResource is scoped to a single pull request.
// Nothing is cached: every call goes to the server.
type PullRequestResource struct {
	client *Client
	id     int
	path   string
}

// ID returns the pull request id the accessor is bound to
func (r *PullRequestResource) ID() int {
	return r.id
}

func (r *PullRequestResource) GetPullRequest(ctx context.Context) (*models.PullRequest, error) {
	var pr models.PullRequest
	if err := r.client.get(ctx, r.path, &pr); err != nil {
		return nil, fmt.Errorf("failed to fetch pull request %d: %w", r.id, err)
	}
	return &pr, nil
}

// GetPullRequestActivity returns the activity log, newest first
func (r *PullRequestResource) GetPullRequestActivity(ctx context.Context) ([]models.Activity, error) {
	activities, err := listAll[models.Activity](ctx, r.client, r.path+"/activity")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity of pull request %d: %w", r.id, err)
	}
	return activities, nil
}

func (r *PullRequestResource) ListPullRequestComments(ctx context.Context) ([]models.Comment, error) {
	comments, err := listAll[models.Comment](ctx, r.client, r.path+"/comments")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments of pull request %d: %w", r.id, err)
	}
	return comments, nil
}

func (r *PullRequestResource) GetPullRequestComment(ctx context.Context, commentID int) (*models.Comment, error) {
	var comment models.Comment
	if err := r.client.get(ctx, fmt.Sprintf("%s/comments/%d", r.path, commentID), &comment); err != nil {
		return nil, fmt.Errorf("failed to fetch comment %d of pull request %d: %w", commentID, r.id, err)
	}
	return &comment, nil
}

// PostPullRequestComment adds a top-level comment with raw markdown text
func (r *PullRequestResource) PostPullRequestComment(ctx context.Context, raw string) (*models.Comment, error) {
	body := models.Comment{Content: models.Content{Raw: raw}}

	var comment models.Comment
	if err := r.client.post(ctx, r.path+"/comments", body, &comment); err != nil {
		return nil, fmt.Errorf("failed to post comment on pull request %d: %w", r.id, err)
	}
	return &comment, nil
}

func (r *PullRequestResource) ListPullRequestCommits(ctx context.Context) ([]models.Commit, error) {
	commits, err := listAll[models.Commit](ctx, r.client, r.path+"/commits")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch commits of pull request %d: %w", r.id, err)
	}
	return commits, nil
}

// GetDiffForPullRequest returns the unified diff as served by Bitbucket
func (r *PullRequestResource) GetDiffForPullRequest(ctx context.Context) (string, error) {
	diff, err := r.client.getRaw(ctx, r.path+"/diff")
	if err != nil {
		return "", fmt.Errorf("failed to fetch diff of pull request %d: %w", r.id, err)
	}
	return diff, nil
}

// GetPatchForPullRequest returns the pull request as a git patch series
func (r *PullRequestResource) GetPatchForPullRequest(ctx context.Context) (string, error) {
	patch, err := r.client.getRaw(ctx, r.path+"/patch")
	if err != nil {
		return "", fmt.Errorf("failed to fetch patch of pull request %d: %w", r.id, err)
	}
	return patch, nil
}

// DeclinePullRequest declines an open pull request
func (r *PullRequestResource) DeclinePullRequest(ctx context.Context) (*models.PullRequest, error) {
	var pr models.PullRequest
	if err := r.client.post(ctx, r.path+"/decline", nil, &pr); err != nil {
		return nil, fmt.Errorf("failed to decline pull request %d: %w", r.id, err)
	}
	return &pr, nil
}

// ApprovePullRequest approves the pull request as the authenticated user
func (r *PullRequestResource) ApprovePullRequest(ctx context.Context) (*models.Approval, error) {
	var approval models.Approval
	if err := r.client.post(ctx, r.path+"/approve", nil, &approval); err != nil {
		return nil, fmt.Errorf("failed to approve pull request %d: %w", r.id, err)
	}
	return &approval, nil
}

// RemovePullRequestApproval withdraws the authenticated user's approval.
// The server drops the approval entry from the activity log and records
// nothing for the removal.
func (r *PullRequestResource) RemovePullRequestApproval(ctx context.Context) error {
	if err := r.client.delete(ctx, r.path+"/approve"); err != nil {
		return fmt.Errorf("failed to remove approval of pull request %d: %w", r.id, err)
	}
	return nil
}

// MergePullRequest merges an open pull request; opts may be nil
func (r *PullRequestResource) MergePullRequest(ctx context.Context, opts *models.MergeOptions) (*models.PullRequest, error) {
	if opts == nil {
		opts = &models.MergeOptions{}
	}

	var pr models.PullRequest
	if err := r.client.post(ctx, r.path+"/merge", opts, &pr); err != nil {
		return nil, fmt.Errorf("failed to merge pull request %d: %w", r.id, err)
	}
	return &pr, nil
}
