package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/ryo246912/bbpr/internal/models"
)

// Printer writes command output as tables, or tab-separated values when
// out is not a terminal.
type Printer struct {
	out   io.Writer
	isTTY bool
	width int
}

func NewPrinter(out io.Writer, isTTY bool, width int) *Printer {
	return &Printer{out: out, isTTY: isTTY, width: width}
}

func (p *Printer) table(header ...string) tableprinter.TablePrinter {
	tp := tableprinter.New(p.out, p.isTTY, p.width)
	tp.AddHeader(header)
	return tp
}

func (p *Printer) PullRequests(prs []models.PullRequest) error {
	if len(prs) == 0 {
		if p.isTTY {
			fmt.Fprintln(p.out, "No pull requests found")
		}
		return nil
	}

	tp := p.table("ID", "TITLE", "BRANCH", "AUTHOR", "STATE", "UPDATED")
	for _, pr := range prs {
		tp.AddField(strconv.Itoa(pr.ID))
		tp.AddField(pr.Title)
		tp.AddField(pr.Source.BranchName())
		tp.AddField(userName(pr.Author))
		tp.AddField(string(pr.State))
		tp.AddField(FormatDate(pr.UpdatedOn))
		tp.EndRow()
	}
	return tp.Render()
}

func (p *Printer) Activities(activities []models.Activity) error {
	tp := p.table("DATE", "KIND", "ACTOR", "DETAIL")
	for i := range activities {
		a := &activities[i]
		kind, actor, detail := DescribeActivity(*a)
		date := a.Date()
		tp.AddField(FormatDate(&date))
		tp.AddField(kind)
		tp.AddField(actor)
		tp.AddField(detail)
		tp.EndRow()
	}
	return tp.Render()
}

func (p *Printer) Comments(comments []models.Comment) error {
	tp := p.table("ID", "AUTHOR", "CREATED", "CONTENT")
	for _, c := range comments {
		content := firstLine(c.Content.Raw)
		if c.Deleted {
			content = "(deleted)"
		}
		tp.AddField(strconv.Itoa(c.ID))
		tp.AddField(userName(c.User))
		tp.AddField(FormatDate(c.CreatedOn))
		tp.AddField(content)
		tp.EndRow()
	}
	return tp.Render()
}

func (p *Printer) Commits(commits []models.Commit) error {
	tp := p.table("HASH", "AUTHOR", "DATE", "MESSAGE")
	for _, c := range commits {
		author := "-"
		if c.Author != nil {
			author = c.Author.Raw
			if c.Author.User != nil {
				author = userName(c.Author.User)
			}
		}
		hash := c.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		tp.AddField(hash)
		tp.AddField(author)
		tp.AddField(FormatDate(c.Date))
		tp.AddField(firstLine(c.Message))
		tp.EndRow()
	}
	return tp.Render()
}

// Detail prints a pull request header followed by its history
func (p *Printer) Detail(d *models.PullRequestDetail) error {
	pr := d.PullRequest
	destination := "-"
	if pr.Destination != nil {
		destination = pr.Destination.BranchName()
	}

	fmt.Fprintf(p.out, "#%d %s\n", pr.ID, pr.Title)
	fmt.Fprintf(p.out, "%s by %s, %s -> %s\n", pr.State, userName(pr.Author), pr.Source.BranchName(), destination)
	if len(pr.Reviewers) > 0 {
		names := make([]string, len(pr.Reviewers))
		for i := range pr.Reviewers {
			names[i] = userName(&pr.Reviewers[i])
		}
		fmt.Fprintf(p.out, "Reviewers: %s\n", strings.Join(names, ", "))
	}
	if pr.Description != "" {
		fmt.Fprintf(p.out, "\n%s\n", pr.Description)
	}

	sections := []struct {
		title string
		count int
		print func() error
	}{
		{"Commits", len(d.Commits), func() error { return p.Commits(d.Commits) }},
		{"Comments", len(d.Comments), func() error { return p.Comments(d.Comments) }},
		{"Activity", len(d.Activity), func() error { return p.Activities(d.Activity) }},
	}
	for _, s := range sections {
		if s.count == 0 {
			continue
		}
		fmt.Fprintf(p.out, "\n%s (%d)\n", s.title, s.count)
		if err := s.print(); err != nil {
			return err
		}
	}
	return nil
}
