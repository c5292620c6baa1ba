package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"catchkit/client"
	"catchkit/config"
	"catchkit/engine"
	"catchkit/ui"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath  string
	Profile     string
	DatabaseURL string
	IdentityURL string
	APIKey      string
	Format      string
	Verbose     bool
	Timeout     time.Duration
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catchkit",
		Short: "Accounts, high scores and the leaderboard for Catch the Presents",
		Long: `catchkit drives the account and score engines from the terminal.

Without a remote database it runs against in-process memory stores, which
only live for one command. Point it at a hosted project or at
catchkit-emulator with --database-url and --identity-url.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.ConfigPath, "config", "", "JSON config file")
	f.StringVar(&opts.Profile, "profile", "", "configuration profile (development|testing|staging|production)")
	f.StringVar(&opts.DatabaseURL, "database-url", "", "realtime database REST base URL")
	f.StringVar(&opts.IdentityURL, "identity-url", "", "identity toolkit base URL")
	f.StringVar(&opts.APIKey, "api-key", "", "web API key")
	f.StringVar(&opts.Format, "format", "text", "result output format (json|text)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine activity to stderr")
	f.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "how long to wait for each operation")

	cmd.AddCommand(newSignUpCommand(opts))
	cmd.AddCommand(newSignInCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newSubmitCommand(opts))
	cmd.AddCommand(newLeaderboardCommand(opts))
	cmd.AddCommand(newPlayCommand(opts))

	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.ConfigPath != "":
		cfg, err = config.LoadFromFile(o.ConfigPath)
	case o.Profile != "":
		cfg, err = config.LoadProfile(o.Profile)
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.DatabaseURL != "" {
		cfg.Remote.DatabaseURL = o.DatabaseURL
	}
	if o.IdentityURL != "" {
		cfg.Remote.IdentityURL = o.IdentityURL
	}
	if o.APIKey != "" {
		cfg.Remote.APIKey = o.APIKey
	}
	return cfg, cfg.Remote.Validate()
}

// session is one command's client plus the console it renders to.
type session struct {
	*client.Client
	console *ui.Console
	opts    *rootOptions
	cmd     *cobra.Command
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	console := ui.NewConsole(cmd.OutOrStdout(), cfg.Client.MessageTTL)
	if o.Format == "json" {
		console = ui.NewConsole(cmd.ErrOrStderr(), cfg.Client.MessageTTL)
	}
	c, err := client.New(client.FromConfig(cfg), client.WithPresenter(console), client.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if !c.Remote() {
		logger.Info("no remote database configured, using memory stores")
	}
	return &session{Client: c, console: console, opts: o, cmd: cmd}, nil
}

// wait drains completions on this goroutine until f resolves. The
// command's goroutine is the UI goroutine for the engines.
func wait[T any](s *session, f *engine.Future[T]) (T, error) {
	ctx, cancel := context.WithTimeout(s.cmd.Context(), s.opts.Timeout)
	defer cancel()
	for !f.Ready() {
		if err := s.Queue.Next(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
	return f.Result()
}

// emit prints v as JSON in json mode; text mode relies on the console.
func (s *session) emit(v any) error {
	if s.opts.Format != "json" {
		return nil
	}
	enc := json.NewEncoder(s.cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *session) signIn(email, password string) error {
	_, err := wait(s, s.SignIn(s.cmd.Context(), email, password))
	return err
}
