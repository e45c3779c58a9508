package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ryo246912/bbpr/internal/bitbucket"
	"github.com/ryo246912/bbpr/internal/models"
	"github.com/ryo246912/bbpr/internal/ui"
	"go.uber.org/zap"
)

var (
	// ErrNotOpen is returned when a workflow needs an open pull request
	ErrNotOpen = errors.New("pull request is not open")
	// ErrNoPullRequests is returned when there is nothing to choose from
	ErrNoPullRequests = errors.New("no open pull requests")
	// ErrCancelled is returned when the user declines a confirmation
	ErrCancelled = errors.New("cancelled")
)

// ReviewService contains the pull request workflows behind the CLI
type ReviewService struct {
	client   bitbucket.BitbucketClient
	repo     bitbucket.RepositoryInfo
	prompter ui.Prompter
	log      *zap.SugaredLogger
}

// NewReviewService creates a new service instance. A nil logger is replaced by a no-op one.
func NewReviewService(client bitbucket.BitbucketClient, repo bitbucket.RepositoryInfo, prompter ui.Prompter, log *zap.SugaredLogger) *ReviewService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ReviewService{
		client:   client,
		repo:     repo,
		prompter: prompter,
		log:      log,
	}
}

// ResolvePullRequestID gets the pull request id from args or prompts user
func (s *ReviewService) ResolvePullRequestID(ctx context.Context, args []string) (int, error) {
	if len(args) >= 1 {
		id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
		if err != nil {
			return 0, fmt.Errorf("invalid pull request id: %w", err)
		}
		if id <= 0 {
			return 0, fmt.Errorf("pull request id must be positive")
		}
		return id, nil
	}

	prs, err := s.client.ListPullRequests(ctx, s.repo, models.StateOpen)
	if err != nil {
		return 0, fmt.Errorf("failed to list open pull requests: %w", err)
	}
	if len(prs) == 0 {
		return 0, ErrNoPullRequests
	}

	return s.prompter.SelectPR(prs)
}

// View collects a pull request with its activity, comments and commits
func (s *ReviewService) View(ctx context.Context, id int) (*models.PullRequestDetail, error) {
	pr, err := s.client.GetPullRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	activity, err := s.client.GetPullRequestActivity(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.client.ListPullRequestComments(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	commits, err := s.client.ListPullRequestCommits(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	return &models.PullRequestDetail{
		PullRequest: pr,
		Activity:    activity,
		Comments:    comments,
		Commits:     commits,
	}, nil
}

// Approve approves the pull request as the authenticated user
func (s *ReviewService) Approve(ctx context.Context, id int) (*models.Approval, error) {
	self, err := s.client.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	approval, err := s.client.ApprovePullRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !approval.Approved || approval.User.UUID != self.UUID {
		return nil, fmt.Errorf("approval of pull request %d was not recorded for %s", id, self.UUID)
	}

	s.log.Infow("approved pull request", "id", id, "user", self.Nickname)
	return approval, nil
}

// Unapprove withdraws the authenticated user's approval
func (s *ReviewService) Unapprove(ctx context.Context, id int) error {
	if err := s.client.RemovePullRequestApproval(ctx, s.repo, id); err != nil {
		return err
	}
	s.log.Infow("removed approval", "id", id)
	return nil
}

// Decline declines an open pull request, asking first unless force is set
func (s *ReviewService) Decline(ctx context.Context, id int, force bool) (*models.PullRequest, error) {
	pr, err := s.requireOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	if !force {
		confirmed, err := s.prompter.Confirm(fmt.Sprintf("Decline pull request #%d %q?", pr.ID, pr.Title))
		if err != nil {
			return nil, fmt.Errorf("failed to confirm decline: %w", err)
		}
		if !confirmed {
			return nil, ErrCancelled
		}
	}

	declined, err := s.client.DeclinePullRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	s.log.Infow("declined pull request", "id", id)
	return declined, nil
}

// Merge merges an open pull request
func (s *ReviewService) Merge(ctx context.Context, id int, opts *models.MergeOptions) (*models.PullRequest, error) {
	if _, err := s.requireOpen(ctx, id); err != nil {
		return nil, err
	}

	merged, err := s.client.MergePullRequest(ctx, s.repo, id, opts)
	if err != nil {
		return nil, err
	}
	s.log.Infow("merged pull request", "id", id, "state", merged.State)
	return merged, nil
}

// Create validates the draft and opens it as a new pull request
func (s *ReviewService) Create(ctx context.Context, draft *models.PullRequest) (*models.PullRequest, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	created, err := s.client.PostPullRequest(ctx, s.repo, draft)
	if err != nil {
		return nil, err
	}
	s.log.Infow("created pull request", "id", created.ID, "source", created.Source.BranchName())
	return created, nil
}

// Comment posts a top-level comment
func (s *ReviewService) Comment(ctx context.Context, id int, raw string) (*models.Comment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("comment cannot be empty")
	}
	return s.client.PostPullRequestComment(ctx, s.repo, id, raw)
}

func (s *ReviewService) requireOpen(ctx context.Context, id int) (*models.PullRequest, error) {
	pr, err := s.client.GetPullRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if pr.State != models.StateOpen {
		return nil, fmt.Errorf("pull request %d is %s: %w", id, pr.State, ErrNotOpen)
	}
	return pr, nil
}

// ValidateDraft checks that a draft can be posted
func ValidateDraft(draft *models.PullRequest) error {
	if draft == nil {
		return fmt.Errorf("no pull request provided")
	}
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if draft.Source.BranchName() == "" {
		return fmt.Errorf("source branch cannot be empty")
	}

	for _, reviewer := range draft.Reviewers {
		if reviewer.UUID == "" && reviewer.AccountID == "" {
			return fmt.Errorf("reviewer needs a uuid or account id")
		}
		if reviewer.UUID == "" {
			continue
		}
		if _, err := uuid.Parse(reviewer.UUID); err != nil {
			return fmt.Errorf("invalid reviewer uuid %q: %w", reviewer.UUID, err)
		}
	}

	return nil
}
