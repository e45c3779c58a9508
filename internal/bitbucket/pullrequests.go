package bitbucket

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ryo246912/bbpr/internal/models"
)

// listPageLen is the largest page size the pull request endpoints accept
const listPageLen = 50

// RepositoryResource is scoped to one workspace/slug pair
type RepositoryResource struct {
	client    *Client
	workspace string
	slug      string
}

// PullRequests returns the pull requests collection of the repository
func (r *RepositoryResource) PullRequests() *PullRequestsResource {
	return &PullRequestsResource{
		client: r.client,
		path: fmt.Sprintf("repositories/%s/%s/pullrequests",
			url.PathEscape(r.workspace), url.PathEscape(r.slug)),
	}
}

// PullRequestsResource is the pull requests collection of one repository
type PullRequestsResource struct {
	client *Client
	path   string
}

// PullRequestResource returns the accessor for the pull request with the given id
func (r *PullRequestsResource) PullRequestResource(id int) *PullRequestResource {
	return &PullRequestResource{
		client: r.client,
		id:     id,
		path:   fmt.Sprintf("%s/%d", r.path, id),
	}
}

// ListPullRequests fetches every pull request in the given states.
// With no state the server default (OPEN) applies.
func (r *PullRequestsResource) ListPullRequests(ctx context.Context, states ...models.PullRequestState) ([]models.PullRequest, error) {
	query := url.Values{}
	query.Set("pagelen", fmt.Sprint(listPageLen))
	for _, s := range states {
		query.Add("state", string(s))
	}

	prs, err := listAll[models.PullRequest](ctx, r.client, r.path+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}
	return prs, nil
}

// PostPullRequest creates a pull request; the server assigns its id and
// opens it.
func (r *PullRequestsResource) PostPullRequest(ctx context.Context, draft *models.PullRequest) (*models.PullRequest, error) {
	var created models.PullRequest
	if err := r.client.post(ctx, r.path, draft, &created); err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}
	return &created, nil
}
