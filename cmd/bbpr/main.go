package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/ryo246912/bbpr/internal/bitbucket"
	"github.com/ryo246912/bbpr/internal/config"
	"github.com/ryo246912/bbpr/internal/credential"
	"github.com/ryo246912/bbpr/internal/logger"
	"github.com/ryo246912/bbpr/internal/service"
	"github.com/ryo246912/bbpr/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RepositoryAdapter adapts repository.Repository to our interface
type RepositoryAdapter struct {
	repo *repository.Repository
}

func (r *RepositoryAdapter) GetOwner() string {
	return r.repo.Owner
}

func (r *RepositoryAdapter) GetName() string {
	return r.repo.Name
}

func parseRepository(value, host string) (*RepositoryAdapter, error) {
	if value == "" {
		return nil, errors.New("no repository given; use --repo WORKSPACE/SLUG or set repo in the config")
	}
	repo, err := repository.ParseWithHost(value, host)
	if err != nil {
		return nil, fmt.Errorf("invalid repository %q: %w", value, err)
	}
	return &RepositoryAdapter{repo: &repo}, nil
}

// app holds what every subcommand needs once flags are parsed
type app struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	client   *bitbucket.Client
	repo     *RepositoryAdapter
	service  *service.ReviewService
	prompter ui.Prompter
	printer  *ui.Printer
	out      io.Writer
}

func storedToken(host string) (string, error) {
	return credential.Get(credential.TokenKey(host))
}

func newApp(cmd *cobra.Command, needRepo bool) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(config.LoadOptions{
		Path:    configPath,
		EnvFile: ".env",
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, err
	}

	opts := bitbucket.Options{
		BaseURL:     cfg.BaseURL,
		Credentials: cfg.Credentials(storedToken),
		Timeout:     cfg.Timeout,
		Logger:      log,
	}
	if debug {
		opts.DebugLog = cmd.ErrOrStderr()
	}
	client, err := bitbucket.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bitbucket client: %w", err)
	}

	t := term.FromEnv()
	width, _, err := t.Size()
	if err != nil || width <= 0 {
		width = 120
	}
	out := cmd.OutOrStdout()
	isTTY := out == os.Stdout && t.IsTerminalOutput()

	a := &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		prompter: &ui.DefaultPrompter{},
		printer:  ui.NewPrinter(out, isTTY, width),
		out:      out,
	}

	if needRepo {
		a.repo, err = parseRepository(cfg.Repo, "bitbucket.org")
		if err != nil {
			return nil, err
		}
		a.service = service.NewReviewService(client, a.repo, a.prompter, log)
	}
	return a, nil
}

// withRepo runs fn with an app bound to the configured repository
func withRepo(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()
		return fn(cmd.Context(), a, args)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bbpr",
		Short:         "Work with Bitbucket Cloud pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("repo", "R", "", "Repository as WORKSPACE/SLUG")
	cmd.PersistentFlags().String("config", config.DefaultPath(), "Path to the config file")
	cmd.PersistentFlags().Bool("debug", false, "Log HTTP traffic to stderr")

	cmd.AddCommand(
		newListCmd(),
		newViewCmd(),
		newActivityCmd(),
		newCommentsCmd(),
		newCommentCmd(),
		newCommitsCmd(),
		newDiffCmd(),
		newApproveCmd(),
		newUnapproveCmd(),
		newDeclineCmd(),
		newMergeCmd(),
		newCreateCmd(),
		newAuthCmd(),
	)
	return cmd
}

func main() {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func formatError(err error) string {
	switch {
	case bitbucket.IsNotFound(err):
		return "not found: " + err.Error()
	case bitbucket.HasStatus(err, http.StatusUnauthorized), bitbucket.HasStatus(err, http.StatusForbidden):
		return strings.TrimSpace(err.Error() + "\nrun `bbpr auth login` or check your credentials")
	}
	return err.Error()
}
