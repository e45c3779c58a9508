package ui

import "github.com/ryo246912/bbpr/internal/models"

// Prompter defines interface for user interaction
type Prompter interface {
	SelectPR(prs []models.PullRequest) (int, error)
	Confirm(message string) (bool, error)
	PromptToken(host string) (string, error)
}

// DefaultPrompter implements the actual prompting logic
type DefaultPrompter struct{}

// SelectPR prompts user to select a PR
func (p *DefaultPrompter) SelectPR(prs []models.PullRequest) (int, error) {
	return SelectPR(prs)
}

// Confirm prompts user for a yes/no answer
func (p *DefaultPrompter) Confirm(message string) (bool, error) {
	return Confirm(message)
}

// PromptToken prompts user for an access token without echoing it
func (p *DefaultPrompter) PromptToken(host string) (string, error) {
	return PromptToken(host)
}

// MockPrompter for testing
type MockPrompter struct {
	SelectedPRID     int
	PRSelectionError error

	Confirmed         bool
	ConfirmationError error

	Token      string
	TokenError error

	// Call tracking
	SelectPRCalled    bool
	ConfirmCalled     bool
	PromptTokenCalled bool
	LastMessage       string
	LastPRs           []models.PullRequest
}

// SelectPR mocks PR selection
func (m *MockPrompter) SelectPR(prs []models.PullRequest) (int, error) {
	m.SelectPRCalled = true
	m.LastPRs = prs
	return m.SelectedPRID, m.PRSelectionError
}

// Confirm mocks confirmation
func (m *MockPrompter) Confirm(message string) (bool, error) {
	m.ConfirmCalled = true
	m.LastMessage = message
	return m.Confirmed, m.ConfirmationError
}

// PromptToken mocks token entry
func (m *MockPrompter) PromptToken(host string) (string, error) {
	m.PromptTokenCalled = true
	return m.Token, m.TokenError
}
