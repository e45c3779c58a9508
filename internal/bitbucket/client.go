package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/ryo246912/bbpr/internal/models"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Bitbucket Cloud REST API root
const DefaultBaseURL = "https://api.bitbucket.org/2.0/"

// Options configure a Client
type Options struct {
	BaseURL     string
	Credentials Credentials
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
	// DebugLog receives full HTTP dumps when set
	DebugLog io.Writer
	// Transport defaults to http.DefaultTransport
	Transport http.RoundTripper
}

// Client wraps the go-gh REST client for the Bitbucket Cloud API
type Client struct {
	http    *http.Client
	baseURL string
	log     *zap.SugaredLogger
}

func NewClient(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	// go-gh falls back to the gh CLI config when no token is given,
	// so a placeholder is passed; transport sets the real header.
	authToken := opts.Credentials.Token
	if authToken == "" {
		authToken = opts.Credentials.AppPassword
	}
	if authToken == "" {
		authToken = "anonymous"
	}

	httpClient, err := api.NewHTTPClient(api.ClientOptions{
		Host:      u.Hostname(),
		AuthToken: authToken,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"User-Agent":   "bbpr",
		},
		SkipDefaultHeaders: true,
		Timeout:            opts.Timeout,
		Transport: &transport{
			base:        base,
			host:        u.Hostname(),
			credentials: opts.Credentials,
			log:         log,
		},
		Log:            opts.DebugLog,
		LogIgnoreEnv:   true,
		LogVerboseHTTP: opts.DebugLog != nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		log:     log,
	}, nil
}

// url joins a relative API path onto the base URL; absolute URLs
// (pagination links) pass through.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// do sends one request and decodes a JSON response into result.
// Non-2xx responses become *Error carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.send(ctx, method, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and returns the response only on 2xx
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newError(method, resp)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// getRaw returns a non-JSON response body as text
func (c *Client) getRaw(ctx context.Context, path string) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// GetCurrentUser fetches the account the client is authenticated as
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.get(ctx, "user", &user); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return &user, nil
}

// Repository returns the accessor for one repository
func (c *Client) Repository(workspace, slug string) *RepositoryResource {
	return &RepositoryResource{client: c, workspace: workspace, slug: slug}
}

func (c *Client) pullRequest(repo RepositoryInfo, id int) *PullRequestResource {
	return c.Repository(repo.GetOwner(), repo.GetName()).PullRequests().PullRequestResource(id)
}

// ListPullRequests lists pull requests of repo in the given states
func (c *Client) ListPullRequests(ctx context.Context, repo RepositoryInfo, states ...models.PullRequestState) ([]models.PullRequest, error) {
	return c.Repository(repo.GetOwner(), repo.GetName()).PullRequests().ListPullRequests(ctx, states...)
}

// PostPullRequest creates a pull request from draft
func (c *Client) PostPullRequest(ctx context.Context, repo RepositoryInfo, draft *models.PullRequest) (*models.PullRequest, error) {
	return c.Repository(repo.GetOwner(), repo.GetName()).PullRequests().PostPullRequest(ctx, draft)
}

func (c *Client) GetPullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.PullRequest, error) {
	return c.pullRequest(repo, id).GetPullRequest(ctx)
}

func (c *Client) GetPullRequestActivity(ctx context.Context, repo RepositoryInfo, id int) ([]models.Activity, error) {
	return c.pullRequest(repo, id).GetPullRequestActivity(ctx)
}

func (c *Client) ListPullRequestComments(ctx context.Context, repo RepositoryInfo, id int) ([]models.Comment, error) {
	return c.pullRequest(repo, id).ListPullRequestComments(ctx)
}

func (c *Client) GetPullRequestComment(ctx context.Context, repo RepositoryInfo, id, commentID int) (*models.Comment, error) {
	return c.pullRequest(repo, id).GetPullRequestComment(ctx, commentID)
}

func (c *Client) PostPullRequestComment(ctx context.Context, repo RepositoryInfo, id int, raw string) (*models.Comment, error) {
	return c.pullRequest(repo, id).PostPullRequestComment(ctx, raw)
}

func (c *Client) ListPullRequestCommits(ctx context.Context, repo RepositoryInfo, id int) ([]models.Commit, error) {
	return c.pullRequest(repo, id).ListPullRequestCommits(ctx)
}

func (c *Client) GetDiffForPullRequest(ctx context.Context, repo RepositoryInfo, id int) (string, error) {
	return c.pullRequest(repo, id).GetDiffForPullRequest(ctx)
}

func (c *Client) GetPatchForPullRequest(ctx context.Context, repo RepositoryInfo, id int) (string, error) {
	return c.pullRequest(repo, id).GetPatchForPullRequest(ctx)
}

func (c *Client) ApprovePullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.Approval, error) {
	return c.pullRequest(repo, id).ApprovePullRequest(ctx)
}

func (c *Client) RemovePullRequestApproval(ctx context.Context, repo RepositoryInfo, id int) error {
	return c.pullRequest(repo, id).RemovePullRequestApproval(ctx)
}

func (c *Client) DeclinePullRequest(ctx context.Context, repo RepositoryInfo, id int) (*models.PullRequest, error) {
	return c.pullRequest(repo, id).DeclinePullRequest(ctx)
}

func (c *Client) MergePullRequest(ctx context.Context, repo RepositoryInfo, id int, opts *models.MergeOptions) (*models.PullRequest, error) {
	return c.pullRequest(repo, id).MergePullRequest(ctx, opts)
}
