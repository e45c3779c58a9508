package bitbucket

import (
	"context"

	"github.com/ryo246912/bbpr/internal/models"
)

// BitbucketClient defines the pull request operations used by the workflows
type BitbucketClient interface {
	GetCurrentUser(ctx context.Context) (*models.User, error)
	ListPullRequests(ctx context.Context, repo RepositoryInfo, states ...models.PullRequestState) ([]models.PullRequest, error)
	PostPullRequest(ctx context.Context, repo RepositoryInfo, draft *models.PullRequest) (*models.PullRequest, error)
	GetPullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.PullRequest, error)
	GetPullRequestActivity(ctx context.Context, repo RepositoryInfo, id int) ([]models.Activity, error)
	ListPullRequestComments(ctx context.Context, repo RepositoryInfo, id int) ([]models.Comment, error)
	GetPullRequestComment(ctx context.Context, repo RepositoryInfo, id, commentID int) (*models.Comment, error)
	PostPullRequestComment(ctx context.Context, repo RepositoryInfo, id int, raw string) (*models.Comment, error)
	ListPullRequestCommits(ctx context.Context, repo RepositoryInfo, id int) ([]models.Commit, error)
	GetDiffForPullRequest(ctx context.Context, repo RepositoryInfo, id int) (string, error)
	GetPatchForPullRequest(ctx context.Context, repo RepositoryInfo, id int) (string, error)
	ApprovePullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.Approval, error)
	RemovePullRequestApproval(ctx context.Context, repo RepositoryInfo, id int) error
	DeclinePullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.PullRequest, error)
	MergePullRequest(ctx context.Context, repo RepositoryInfo, id int, opts *models.MergeOptions) (*models.PullRequest, error)
}

// RepositoryInfo defines repository information interface.
// On Bitbucket the owner is the workspace and the name is the slug.
type RepositoryInfo interface {
	GetOwner() string
	GetName() string
}

// Ensure Client implements BitbucketClient interface
var _ BitbucketClient = (*Client)(nil)
