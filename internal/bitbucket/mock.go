package bitbucket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ryo246912/bbpr/internal/models"
)

// MockClient implements BitbucketClient for testing
type MockClient struct {
	// Control test behavior
	CurrentUser       *models.User
	CurrentUserError  error
	PullRequests      []models.PullRequest
	PullRequestsError error
	PullRequest       *models.PullRequest
	PullRequestError  error
	Activities        []models.Activity
	ActivityError     error
	Comments          []models.Comment
	CommentsError     error
	Comment           *models.Comment
	CommentError      error
	Commits           []models.Commit
	CommitsError      error
	Diff              string
	DiffError         error
	Approval          *models.Approval
	ApproveError      error
	UnapproveError    error
	Declined          *models.PullRequest
	DeclineError      error
	Merged            *models.PullRequest
	MergeError        error
	Created           *models.PullRequest
	CreateError       error

	// Track method calls
	GetCurrentUserCalled            bool
	ListPullRequestsCalled          bool
	PostPullRequestCalled           bool
	GetPullRequestCalled            bool
	GetPullRequestActivityCalled    bool
	ListPullRequestCommentsCalled   bool
	GetPullRequestCommentCalled     bool
	PostPullRequestCommentCalled    bool
	ListPullRequestCommitsCalled    bool
	GetDiffForPullRequestCalled     bool
	GetPatchForPullRequestCalled    bool
	ApprovePullRequestCalled        bool
	RemovePullRequestApprovalCalled bool
	DeclinePullRequestCalled        bool
	MergePullRequestCalled          bool

	// Store call arguments for verification
	LastOwner     string
	LastRepo      string
	LastID        int
	LastCommentID int
	LastStates    []models.PullRequestState
	LastDraft     *models.PullRequest
	LastRaw       string
	LastMerge     *models.MergeOptions
}

func (m *MockClient) track(repo RepositoryInfo, id int) {
	m.LastOwner = repo.GetOwner()
	m.LastRepo = repo.GetName()
	m.LastID = id
}

func (m *MockClient) GetCurrentUser(ctx context.Context) (*models.User, error) {
	m.GetCurrentUserCalled = true
	return m.CurrentUser, m.CurrentUserError
}

func (m *MockClient) ListPullRequests(ctx context.Context, repo RepositoryInfo, states ...models.PullRequestState) ([]models.PullRequest, error) {
	m.ListPullRequestsCalled = true
	m.track(repo, 0)
	m.LastStates = states
	return m.PullRequests, m.PullRequestsError
}

func (m *MockClient) PostPullRequest(ctx context.Context, repo RepositoryInfo, draft *models.PullRequest) (*models.PullRequest, error) {
	m.PostPullRequestCalled = true
	m.track(repo, 0)
	m.LastDraft = draft
	return m.Created, m.CreateError
}

func (m *MockClient) GetPullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.PullRequest, error) {
	m.GetPullRequestCalled = true
	m.track(repo, id)
	return m.PullRequest, m.PullRequestError
}

func (m *MockClient) GetPullRequestActivity(ctx context.Context, repo RepositoryInfo, id int) ([]models.Activity, error) {
	m.GetPullRequestActivityCalled = true
	m.track(repo, id)
	return m.Activities, m.ActivityError
}

func (m *MockClient) ListPullRequestComments(ctx context.Context, repo RepositoryInfo, id int) ([]models.Comment, error) {
	m.ListPullRequestCommentsCalled = true
	m.track(repo, id)
	return m.Comments, m.CommentsError
}

func (m *MockClient) GetPullRequestComment(ctx context.Context, repo RepositoryInfo, id, commentID int) (*models.Comment, error) {
	m.GetPullRequestCommentCalled = true
	m.track(repo, id)
	m.LastCommentID = commentID
	return m.Comment, m.CommentError
}

func (m *MockClient) PostPullRequestComment(ctx context.Context, repo RepositoryInfo, id int, raw string) (*models.Comment, error) {
	m.PostPullRequestCommentCalled = true
	m.track(repo, id)
	m.LastRaw = raw
	return m.Comment, m.CommentError
}

func (m *MockClient) ListPullRequestCommits(ctx context.Context, repo RepositoryInfo, id int) ([]models.Commit, error) {
	m.ListPullRequestCommitsCalled = true
	m.track(repo, id)
	return m.Commits, m.CommitsError
}

func (m *MockClient) GetDiffForPullRequest(ctx context.Context, repo RepositoryInfo, id int) (string, error) {
	m.GetDiffForPullRequestCalled = true
	m.track(repo, id)
	return m.Diff, m.DiffError
}

func (m *MockClient) GetPatchForPullRequest(ctx context.Context, repo RepositoryInfo, id int) (string, error) {
	m.GetPatchForPullRequestCalled = true
	m.track(repo, id)
	return m.Diff, m.DiffError
}

func (m *MockClient) ApprovePullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.Approval, error) {
	m.ApprovePullRequestCalled = true
	m.track(repo, id)
	return m.Approval, m.ApproveError
}

func (m *MockClient) RemovePullRequestApproval(ctx context.Context, repo RepositoryInfo, id int) error {
	m.RemovePullRequestApprovalCalled = true
	m.track(repo, id)
	return m.UnapproveError
}

func (m *MockClient) DeclinePullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.PullRequest, error) {
	m.DeclinePullRequestCalled = true
	m.track(repo, id)
	return m.Declined, m.DeclineError
}

func (m *MockClient) MergePullRequest(ctx context.Context, repo RepositoryInfo, id int, opts *models.MergeOptions) (*models.PullRequest, error) {
	m.MergePullRequestCalled = true
	m.track(repo, id)
	m.LastMerge = opts
	return m.Merged, m.MergeError
}

// MockRepository implements repository information for testing
type MockRepository struct {
	Owner string
	Name  string
}

func (m *MockRepository) GetOwner() string {
	return m.Owner
}

func (m *MockRepository) GetName() string {
	return m.Name
}

// Helper functions for creating test data
func CreateTestPRs(count int) []models.PullRequest {
	prs := make([]models.PullRequest, count)
	for i := 0; i < count; i++ {
		prs[i] = models.PullRequest{
			ID:     i + 1,
			Title:  fmt.Sprintf("Test PR #%d", i+1),
			State:  models.StateOpen,
			Author: &models.User{Nickname: fmt.Sprintf("user%d", i+1)},
			Source: models.Endpoint{Branch: &models.Branch{Name: fmt.Sprintf("feature-%d", i+1)}},
		}
	}
	return prs
}

// Error helpers for testing error conditions
func NewAPIError(status int, message string) error {
	return &Error{StatusCode: status, Method: http.MethodGet, URL: "https://api.bitbucket.org/2.0/test", Message: message}
}

func NewNotFoundError() error {
	return NewAPIError(http.StatusNotFound, "Not Found")
}

// Ensure MockClient implements BitbucketClient interface
var _ BitbucketClient = (*MockClient)(nil)
