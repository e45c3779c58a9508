package bitbucket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ryo246912/bbpr/internal/models"
	"github.com/stretchr/testify/require"
)

const (
	publicWorkspace = "mercurial"
	publicRepo      = "mercurial"
	testWorkspace   = "tester"
	testRepo        = "test-repository"

	existingCommentRaw = "This repo is not used for development, it's just a mirror (and I am just an infrequent contributor). Please consult http://mercurial.selenic.com/wiki/ContributingChanges and send your patch to ``mercurial-devel`` ML."
)

// fakePR is the server-side state of one pull request
type fakePR struct {
	pr       models.PullRequest
	activity []models.Activity // newest first
	comments []models.Comment
	commits  []models.Commit
	diff     string
	approved map[string]bool
}

// fakeBitbucket is an in-memory Bitbucket Cloud API for pull requests
type fakeBitbucket struct {
	mu          sync.Mutex
	self        models.User
	repos       map[string]map[int]*fakePR
	nextID      int
	nextComment int
	pageLen     int
	lastAuth    string
}

func newFakeBitbucket() *fakeBitbucket {
	f := &fakeBitbucket{
		self:        models.User{UUID: "{6f1b2a3c-4d5e-4f60-8a7b-9c0d1e2f3a4b}", Nickname: "tester", DisplayName: "Test Account"},
		repos:       map[string]map[int]*fakePR{},
		nextID:      100,
		nextComment: 90000,
		pageLen:     2,
	}
	f.repos[testWorkspace+"/"+testRepo] = map[int]*fakePR{}
	f.seedPublicRepository()
	return f
}

func (f *fakeBitbucket) seedPublicRepository() {
	author := models.User{Nickname: "goodtune", DisplayName: "Gary Reynolds"}
	base := time.Date(2013, 11, 5, 10, 0, 0, 0, time.UTC)
	pr := models.PullRequest{
		ID:          2,
		Title:       "Selective read/write or read-only repos with hg-ssh",
		State:       models.StateDeclined,
		Author:      &author,
		Source:      models.Endpoint{Branch: &models.Branch{Name: "default"}},
		Destination: &models.Endpoint{Branch: &models.Branch{Name: "default"}},
	}
	snapshot := &models.PullRequest{ID: 2, Title: pr.Title}
	mirror := models.User{Nickname: "mirror-maintainer"}

	comments := []models.Comment{
		{ID: 53789, Content: models.Content{Raw: existingCommentRaw}, User: &mirror},
		{ID: 53790, Content: models.Content{Raw: "Ok, will do."}, User: &author},
	}

	f.repos[publicWorkspace+"/"+publicRepo] = map[int]*fakePR{
		2: {
			pr: pr,
			activity: []models.Activity{
				{Kind: models.ActivityUpdate, Update: &models.Update{State: models.StateDeclined, Author: &mirror, Date: base.Add(3 * time.Hour)}, PullRequest: snapshot},
				{Kind: models.ActivityComment, Comment: &comments[1], PullRequest: snapshot},
				{Kind: models.ActivityComment, Comment: &comments[0], PullRequest: snapshot},
				{Kind: models.ActivityUpdate, Update: &models.Update{State: models.StateOpen, Author: &author, Date: base}, PullRequest: snapshot},
			},
			comments: comments,
			commits: []models.Commit{
				{Hash: "b2d6f4a1c3e5", Message: "Update the docstring"},
				{Hash: "a1c3e5b2d6f4", Message: "hg-ssh: add read-only and selective write access"},
			},
			diff:     "diff --git a/contrib/hg-ssh b/contrib/hg-ssh\n--- a/contrib/hg-ssh\n+++ b/contrib/hg-ssh\n@@ -1 +1 @@\n-old\n+new\n",
			approved: map[string]bool{},
		},
	}
}

// serve starts the fake and returns a client authenticated with creds
func (f *fakeBitbucket) serve(t *testing.T, creds Credentials) *Client {
	t.Helper()

	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseURL:     srv.URL + "/2.0/",
		Credentials: creds,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func (f *fakeBitbucket) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.recordAuth)

	r.Route("/2.0", func(r chi.Router) {
		r.Get("/user", f.getUser)
		r.Route("/repositories/{workspace}/{slug}", func(r chi.Router) {
			r.Get("/diff/{id}", f.getRepositoryDiff)
			r.Get("/pullrequests", f.listPullRequests)
			r.Post("/pullrequests", f.createPullRequest)
			r.Route("/pullrequests/{id}", func(r chi.Router) {
				r.Get("/", f.getPullRequest)
				r.Get("/activity", f.getActivity)
				r.Get("/comments", f.listComments)
				r.Post("/comments", f.postComment)
				r.Get("/comments/{commentID}", f.getComment)
				r.Get("/commits", f.listCommits)
				r.Get("/diff", f.redirectDiff)
				r.Get("/patch", f.getPatch)
				r.Post("/decline", f.decline)
				r.Post("/approve", f.approve)
				r.Delete("/approve", f.unapprove)
				r.Post("/merge", f.merge)
			})
		})
	})
	return r
}

func (f *fakeBitbucket) recordAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeBitbucket) authorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"type":  "error",
		"error": map[string]string{"message": message},
	})
}

// writePage serves one page of values and links to the next
func writePage[T any](w http.ResponseWriter, r *http.Request, pageLen int, values []T) {
	pageNum := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		pageNum = p
	}

	start := (pageNum - 1) * pageLen
	end := start + pageLen
	if start > len(values) {
		start = len(values)
	}
	if end > len(values) {
		end = len(values)
	}

	body := map[string]interface{}{
		"values":  values[start:end],
		"page":    pageNum,
		"pagelen": pageLen,
		"size":    len(values),
	}
	if end < len(values) {
		query := r.URL.Query()
		query.Set("page", strconv.Itoa(pageNum+1))
		next := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawQuery: query.Encode()}
		body["next"] = next.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *fakeBitbucket) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	return true
}

// lookup finds the pull request named by the URL; f.mu must be held
func (f *fakeBitbucket) lookup(w http.ResponseWriter, r *http.Request) (*fakePR, bool) {
	repo, ok := f.repos[chi.URLParam(r, "workspace")+"/"+chi.URLParam(r, "slug")]
	if !ok {
		writeError(w, http.StatusNotFound, "Repository not found")
		return nil, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Pull request not found")
		return nil, false
	}
	pr, ok := repo[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Pull request %d not found", id))
		return nil, false
	}
	return pr, true
}

func (p *fakePR) snapshot() *models.PullRequest {
	return &models.PullRequest{ID: p.pr.ID, Title: p.pr.Title, State: p.pr.State}
}

func (p *fakePR) record(a models.Activity) {
	a.PullRequest = p.snapshot()
	p.activity = append([]models.Activity{a}, p.activity...)
}

func (f *fakeBitbucket) getUser(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, f.self)
}

func (f *fakeBitbucket) listPullRequests(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo, ok := f.repos[chi.URLParam(r, "workspace")+"/"+chi.URLParam(r, "slug")]
	if !ok {
		writeError(w, http.StatusNotFound, "Repository not found")
		return
	}

	states := r.URL.Query()["state"]
	if len(states) == 0 {
		states = []string{string(models.StateOpen)}
	}
	wanted := map[string]bool{}
	for _, s := range states {
		wanted[s] = true
	}

	ids := make([]int, 0, len(repo))
	for id := range repo {
		ids = append(ids, id)
	}
	// newest first, like the real listing
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] > ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	prs := make([]models.PullRequest, 0, len(ids))
	for _, id := range ids {
		if wanted[string(repo[id].pr.State)] {
			prs = append(prs, repo[id].pr)
		}
	}
	writePage(w, r, f.pageLen, prs)
}

func (f *fakeBitbucket) createPullRequest(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	repo, ok := f.repos[chi.URLParam(r, "workspace")+"/"+chi.URLParam(r, "slug")]
	if !ok {
		writeError(w, http.StatusNotFound, "Repository not found")
		return
	}

	var draft models.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if draft.Title == "" {
		writeError(w, http.StatusBadRequest, "title: This field is required.")
		return
	}
	if draft.Source.BranchName() == "" {
		writeError(w, http.StatusBadRequest, "source: This field is required.")
		return
	}

	now := time.Now().UTC()
	author := f.self
	pr := draft
	pr.ID = f.nextID
	pr.State = models.StateOpen
	pr.Author = &author
	pr.CreatedOn = &now
	pr.UpdatedOn = &now
	if pr.Destination == nil {
		pr.Destination = &models.Endpoint{Branch: &models.Branch{Name: "main"}}
	}
	f.nextID++

	entry := &fakePR{
		pr:       pr,
		commits:  []models.Commit{{Hash: fmt.Sprintf("c0ffee%04d", pr.ID), Message: pr.Title}},
		diff:     fmt.Sprintf("diff --git a/file%d b/file%d\n", pr.ID, pr.ID),
		approved: map[string]bool{},
	}
	entry.record(models.Activity{Kind: models.ActivityUpdate, Update: &models.Update{State: models.StateOpen, Title: pr.Title, Author: &author, Date: now}})
	repo[pr.ID] = entry

	writeJSON(w, http.StatusCreated, pr)
}

func (f *fakeBitbucket) getPullRequest(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pr.pr)
}

func (f *fakeBitbucket) getActivity(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writePage(w, r, f.pageLen, pr.activity)
}

func (f *fakeBitbucket) listComments(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writePage(w, r, f.pageLen, pr.comments)
}

func (f *fakeBitbucket) getComment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "commentID"))
	for _, c := range pr.comments {
		if c.ID == id {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Comment not found")
}

func (f *fakeBitbucket) postComment(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	var body models.Comment
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content.Raw == "" {
		writeError(w, http.StatusBadRequest, "content: This field is required.")
		return
	}

	now := time.Now().UTC()
	user := f.self
	comment := models.Comment{ID: f.nextComment, Content: body.Content, User: &user, CreatedOn: &now}
	f.nextComment++
	pr.comments = append(pr.comments, comment)
	pr.record(models.Activity{Kind: models.ActivityComment, Comment: &comment})

	writeJSON(w, http.StatusCreated, comment)
}

func (f *fakeBitbucket) listCommits(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writePage(w, r, f.pageLen, pr.commits)
}

// redirectDiff mimics the real API, which answers with a redirect
// to the repository diff endpoint
func (f *fakeBitbucket) redirectDiff(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	_, ok := f.lookup(w, r)
	f.mu.Unlock()
	if !ok {
		return
	}
	target := fmt.Sprintf("/2.0/repositories/%s/%s/diff/%s",
		chi.URLParam(r, "workspace"), chi.URLParam(r, "slug"), chi.URLParam(r, "id"))
	http.Redirect(w, r, target, http.StatusFound)
}

func (f *fakeBitbucket) getRepositoryDiff(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo := f.repos[chi.URLParam(r, "workspace")+"/"+chi.URLParam(r, "slug")]
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	pr, ok := repo[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Diff not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(pr.diff))
}

func (f *fakeBitbucket) getPatch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "From %s Mon Sep 17 00:00:00 2001\nSubject: [PATCH] %s\n\n%s", pr.commits[0].Hash, pr.pr.Title, pr.diff)
}

func (f *fakeBitbucket) decline(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	if pr.pr.State != models.StateOpen {
		writeError(w, http.StatusBadRequest, "Pull request is not open")
		return
	}

	now := time.Now().UTC()
	user := f.self
	pr.pr.State = models.StateDeclined
	pr.pr.UpdatedOn = &now
	pr.record(models.Activity{Kind: models.ActivityUpdate, Update: &models.Update{State: models.StateDeclined, Author: &user, Date: now}})

	writeJSON(w, http.StatusOK, pr.pr)
}

func (f *fakeBitbucket) approve(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	if !pr.approved[f.self.UUID] {
		pr.approved[f.self.UUID] = true
		pr.record(models.Activity{Kind: models.ActivityApproval, Approval: &models.ApprovalEvent{Date: now, User: f.self}})
	}

	writeJSON(w, http.StatusOK, models.Approval{
		Approved:       true,
		User:           f.self,
		Role:           "PARTICIPANT",
		State:          "approved",
		ParticipatedOn: &now,
	})
}

func (f *fakeBitbucket) unapprove(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	if !pr.approved[f.self.UUID] {
		writeError(w, http.StatusNotFound, "You haven't approved this pull request")
		return
	}

	delete(pr.approved, f.self.UUID)
	for i, a := range pr.activity {
		if a.Kind == models.ActivityApproval && a.Approval.User.UUID == f.self.UUID {
			pr.activity = append(pr.activity[:i], pr.activity[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeBitbucket) merge(w http.ResponseWriter, r *http.Request) {
	if !f.requireAuth(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.lookup(w, r)
	if !ok {
		return
	}
	if pr.pr.State != models.StateOpen {
		writeError(w, http.StatusBadRequest, "Pull request is not open")
		return
	}

	var opts models.MergeOptions
	_ = json.NewDecoder(r.Body).Decode(&opts)

	now := time.Now().UTC()
	user := f.self
	pr.pr.State = models.StateMerged
	pr.pr.CloseSourceBranch = opts.CloseSourceBranch
	pr.pr.UpdatedOn = &now
	pr.record(models.Activity{Kind: models.ActivityUpdate, Update: &models.Update{State: models.StateMerged, Reason: opts.Message, Author: &user, Date: now}})

	writeJSON(w, http.StatusOK, pr.pr)
}
