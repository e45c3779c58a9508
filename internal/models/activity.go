package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActivityKind tags which event an Activity carries
type ActivityKind string

const (
	ActivityUpdate           ActivityKind = "update"
	ActivityComment          ActivityKind = "comment"
	ActivityApproval         ActivityKind = "approval"
	ActivityChangesRequested ActivityKind = "changes_requested"
	ActivitySnapshot         ActivityKind = "pull_request"
)

// Update is a state or metadata change on a pull request
type Update struct {
	State       PullRequestState `json:"state"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Author      *User            `json:"author,omitempty"`
	Source      *Endpoint        `json:"source,omitempty"`
	Destination *Endpoint        `json:"destination,omitempty"`
	Date        time.Time        `json:"date"`
}

// ApprovalEvent records an approval (or a change request) in the activity log
type ApprovalEvent struct {
	Date time.Time `json:"date"`
	User User      `json:"user"`
}

// Activity is one entry of a pull request's activity log.
// Exactly one of Update, Comment, Approval or ChangesRequested is set,
// matching Kind; a snapshot-only entry sets none of them.
// PullRequest holds the snapshot the server attaches to the entry.
type Activity struct {
	Kind             ActivityKind
	Update           *Update
	Comment          *Comment
	Approval         *ApprovalEvent
	ChangesRequested *ApprovalEvent
	PullRequest      *PullRequest
}

type rawActivity struct {
	Update           *Update        `json:"update,omitempty"`
	Comment          *Comment       `json:"comment,omitempty"`
	Approval         *ApprovalEvent `json:"approval,omitempty"`
	ChangesRequested *ApprovalEvent `json:"changes_requested,omitempty"`
	PullRequest      *PullRequest   `json:"pull_request,omitempty"`
}

// UnmarshalJSON decodes an activity and derives its Kind
func (a *Activity) UnmarshalJSON(data []byte) error {
	var raw rawActivity
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var kinds []ActivityKind
	if raw.Update != nil {
		kinds = append(kinds, ActivityUpdate)
	}
	if raw.Comment != nil {
		kinds = append(kinds, ActivityComment)
	}
	if raw.Approval != nil {
		kinds = append(kinds, ActivityApproval)
	}
	if raw.ChangesRequested != nil {
		kinds = append(kinds, ActivityChangesRequested)
	}

	switch {
	case len(kinds) > 1:
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		return fmt.Errorf("activity carries more than one event: %s", strings.Join(names, ", "))
	case len(kinds) == 1:
		a.Kind = kinds[0]
	case raw.PullRequest != nil:
		a.Kind = ActivitySnapshot
	default:
		return fmt.Errorf("activity carries no event")
	}

	a.Update = raw.Update
	a.Comment = raw.Comment
	a.Approval = raw.Approval
	a.ChangesRequested = raw.ChangesRequested
	a.PullRequest = raw.PullRequest
	return nil
}

// MarshalJSON encodes the activity back into the wire shape
func (a Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawActivity{
		Update:           a.Update,
		Comment:          a.Comment,
		Approval:         a.Approval,
		ChangesRequested: a.ChangesRequested,
		PullRequest:      a.PullRequest,
	})
}

// Date returns the time of the event, or the zero time for a snapshot
// or an entry whose event field is unset.
func (a *Activity) Date() time.Time {
	switch {
	case a.Kind == ActivityUpdate && a.Update != nil:
		return a.Update.Date
	case a.Kind == ActivityApproval && a.Approval != nil:
		return a.Approval.Date
	case a.Kind == ActivityChangesRequested && a.ChangesRequested != nil:
		return a.ChangesRequested.Date
	case a.Kind == ActivityComment && a.Comment != nil && a.Comment.CreatedOn != nil:
		return *a.Comment.CreatedOn
	}
	return time.Time{}
}

// Actor returns the user behind the event, or nil if unknown
func (a *Activity) Actor() *User {
	switch {
	case a.Kind == ActivityUpdate && a.Update != nil:
		return a.Update.Author
	case a.Kind == ActivityApproval && a.Approval != nil:
		return &a.Approval.User
	case a.Kind == ActivityChangesRequested && a.ChangesRequested != nil:
		return &a.ChangesRequested.User
	case a.Kind == ActivityComment && a.Comment != nil:
		return a.Comment.User
	}
	return nil
}
