package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/ryo246912/bbpr/internal/models"
)

func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w < width {
		return str + strings.Repeat(" ", width-w)
	}
	return str
}

// Truncate cuts str to at most width cells, ending with "..." when cut
func Truncate(str string, width int) string {
	return runewidth.Truncate(str, width, "...")
}

// FormatDate renders t in local time, or "-" for nil/zero
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func userName(u *models.User) string {
	if u == nil {
		return "-"
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "-"
}

// FormatPRItem renders a pull request as one fixed-width selection line
func FormatPRItem(pr models.PullRequest) string {
	return fmt.Sprintf(
		"#%s %s %s %s %s",
		PadRight(fmt.Sprintf("%-6d", pr.ID), 7),
		PadRight(Truncate(pr.Title, 60), 60),
		PadRight(Truncate(userName(pr.Author), 15), 15),
		PadRight(string(pr.State), 10),
		PadRight(FormatDate(pr.UpdatedOn), 16),
	)
}

// DescribeActivity summarises an activity entry as kind, actor and detail
func DescribeActivity(a models.Activity) (string, string, string) {
	actor := userName(a.Actor())
	switch {
	case a.Kind == models.ActivityUpdate && a.Update != nil:
		detail := string(a.Update.State)
		if a.Update.Reason != "" {
			detail += ": " + a.Update.Reason
		}
		return "update", actor, detail
	case a.Kind == models.ActivityComment && a.Comment != nil:
		return "comment", actor, firstLine(a.Comment.Content.Raw)
	case a.Kind == models.ActivityApproval:
		return "approval", actor, "approved"
	case a.Kind == models.ActivityChangesRequested:
		return "changes requested", actor, "requested changes"
	case a.Kind != models.ActivitySnapshot && a.Kind != "":
		return string(a.Kind), actor, ""
	}
	title := ""
	if a.PullRequest != nil {
		title = a.PullRequest.Title
	}
	return "snapshot", "-", title
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
