package models

import "time"

// PullRequestState is the lifecycle state Bitbucket reports for a PR
type PullRequestState string

const (
	StateOpen       PullRequestState = "OPEN"
	StateDeclined   PullRequestState = "DECLINED"
	StateMerged     PullRequestState = "MERGED"
	StateSuperseded PullRequestState = "SUPERSEDED"
)

// PullRequest represents a Bitbucket pull request.
// ID stays zero on a draft until the server assigns one.
type PullRequest struct {
	ID                int              `json:"id,omitempty"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	State             PullRequestState `json:"state,omitempty"`
	Author            *User            `json:"author,omitempty"`
	Source            Endpoint         `json:"source"`
	Destination       *Endpoint        `json:"destination,omitempty"`
	Reviewers         []User           `json:"reviewers,omitempty"`
	CloseSourceBranch bool             `json:"close_source_branch,omitempty"`
	CommentCount      int              `json:"comment_count,omitempty"`
	CreatedOn         *time.Time       `json:"created_on,omitempty"`
	UpdatedOn         *time.Time       `json:"updated_on,omitempty"`
}

// Endpoint is one side (source or destination) of a pull request
type Endpoint struct {
	Branch     *Branch        `json:"branch,omitempty"`
	Commit     *CommitRef     `json:"commit,omitempty"`
	Repository *RepositoryRef `json:"repository,omitempty"`
}

// Branch references a branch by name
type Branch struct {
	Name string `json:"name"`
}

// CommitRef references a commit by hash
type CommitRef struct {
	Hash string `json:"hash"`
}

// RepositoryRef references a repository by its full name
type RepositoryRef struct {
	FullName string `json:"full_name,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}

// BranchName returns the branch name of an endpoint, or "" when unset
func (e *Endpoint) BranchName() string {
	if e == nil || e.Branch == nil {
		return ""
	}
	return e.Branch.Name
}

// User represents a Bitbucket account
type User struct {
	UUID        string `json:"uuid,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Content holds the raw text of a comment and its rendered forms
type Content struct {
	Raw    string `json:"raw"`
	Markup string `json:"markup,omitempty"`
	HTML   string `json:"html,omitempty"`
}

// Inline locates a comment on a file line
type Inline struct {
	Path string `json:"path"`
	From *int   `json:"from,omitempty"`
	To   *int   `json:"to,omitempty"`
}

// CommentRef references a parent comment
type CommentRef struct {
	ID int `json:"id"`
}

// Comment represents a PR comment
type Comment struct {
	ID        int         `json:"id,omitempty"`
	Content   Content     `json:"content"`
	User      *User       `json:"user,omitempty"`
	Deleted   bool        `json:"deleted,omitempty"`
	Inline    *Inline     `json:"inline,omitempty"`
	Parent    *CommentRef `json:"parent,omitempty"`
	CreatedOn *time.Time  `json:"created_on,omitempty"`
	UpdatedOn *time.Time  `json:"updated_on,omitempty"`
}

// CommitAuthor is the author line of a commit plus the matched account, if any
type CommitAuthor struct {
	Raw  string `json:"raw"`
	User *User  `json:"user,omitempty"`
}

// Commit represents a commit in a pull request
type Commit struct {
	Hash    string        `json:"hash"`
	Message string        `json:"message"`
	Date    *time.Time    `json:"date,omitempty"`
	Author  *CommitAuthor `json:"author,omitempty"`
}

// Approval is the participant record returned when approving a pull request
type Approval struct {
	Approved       bool       `json:"approved"`
	User           User       `json:"user"`
	Role           string     `json:"role"`
	State          string     `json:"state,omitempty"`
	ParticipatedOn *time.Time `json:"participated_on,omitempty"`
}

// MergeOptions are the optional settings of a merge request
type MergeOptions struct {
	Message           string `json:"message,omitempty"`
	MergeStrategy     string `json:"merge_strategy,omitempty"`
	CloseSourceBranch bool   `json:"close_source_branch,omitempty"`
}

// PullRequestDetail bundles a pull request with its history for display
type PullRequestDetail struct {
	PullRequest *PullRequest
	Activity    []Activity
	Comments    []Comment
	Commits     []Commit
}
