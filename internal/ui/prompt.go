package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/ryo246912/bbpr/internal/models"
)

func SelectPR(prs []models.PullRequest) (int, error) {
	if len(prs) == 0 {
		return 0, fmt.Errorf("no open pull requests found")
	}

	items := make([]string, len(prs))
	for i, pr := range prs {
		items[i] = FormatPRItem(pr)
	}

	prompt := promptui.Select{
		Label: "Select PR",
		Items: items,
		Size:  12,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
		StartInSearchMode: true,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	return prs[idx].ID, nil
}

// Confirm asks for a y/n answer on stdin
func Confirm(message string) (bool, error) {
	return confirm(os.Stdin, os.Stdout, message)
}

func confirm(in io.Reader, out io.Writer, message string) (bool, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s (y/n): ", message)
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		default:
			fmt.Fprintln(out, "Please enter 'y' or 'n'.")
		}
	}
}

// PromptToken reads an access token with masked input
func PromptToken(host string) (string, error) {
	prompt := promptui.Prompt{
		Label: fmt.Sprintf("Access token for %s", host),
		Mask:  '*',
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("token cannot be empty")
			}
			return nil
		},
	}

	token, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("token prompt failed: %w", err)
	}
	return strings.TrimSpace(token), nil
}
