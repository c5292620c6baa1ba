package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"catchkit/leaderboard"
)

type credentials struct {
	Email    string
	Password string
}

func (c *credentials) bind(cmd *cobra.Command, required bool) {
	cmd.Flags().StringVar(&c.Email, "email", "", "account email")
	cmd.Flags().StringVar(&c.Password, "password", "", "account password")
	if required {
		_ = cmd.MarkFlagRequired("email")
		_ = cmd.MarkFlagRequired("password")
	}
}

func newSignUpCommand(opts *rootOptions) *cobra.Command {
	var (
		creds    credentials
		username string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and its player profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			id, err := wait(s, s.SignUp(cmd.Context(), username, creds.Email, creds.Password))
			if err != nil {
				return err
			}
			return s.emit(map[string]any{"user_id": id, "username": username})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name on the leaderboard")
	creds.bind(cmd, false)
	return cmd
}

func newSignInCommand(opts *rootOptions) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Check credentials and that the player profile exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.signIn(creds.Email, creds.Password); err != nil {
				return err
			}
			id, _ := s.Session.CurrentUser()
			return s.emit(map[string]any{"user_id": id})
		},
	}
	creds.bind(cmd, false)
	return cmd
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Send a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := wait(s, s.RequestPasswordReset(cmd.Context(), email)); err != nil {
				return err
			}
			return s.emit(map[string]any{"email": email, "sent": true})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newSubmitCommand(opts *rootOptions) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "submit <score>",
		Short: "Sign in and submit a finished round's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("score must be an integer: %w", err)
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.signIn(creds.Email, creds.Password); err != nil {
				return err
			}
			out, err := wait(s, s.SubmitScore(cmd.Context(), score))
			if err != nil {
				return err
			}
			if !out.Written && opts.Format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "High score stays at %d.\n", out.Highscore)
			}
			return s.emit(out)
		},
	}
	creds.bind(cmd, true)
	return cmd
}

func newLeaderboardCommand(opts *rootOptions) *cobra.Command {
	var (
		creds credentials
		top   int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show every player ranked by high score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if creds.Email != "" {
				if err := s.signIn(creds.Email, creds.Password); err != nil {
					return err
				}
			}
			entries, err := wait(s, s.FetchLeaderboard(cmd.Context()))
			if err != nil {
				return err
			}
			if top > 0 {
				entries = leaderboard.TopN(entries, top)
			}
			return s.emit(entries)
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "only emit the first N entries in json mode")
	creds.bind(cmd, false)
	return cmd
}

// newPlayCommand runs a scripted session: optional sign-up, sign-in, one
// submission per round, then the leaderboard.
func newPlayCommand(opts *rootOptions) *cobra.Command {
	var (
		creds    credentials
		username string
		rounds   string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play scripted rounds: sign in, submit each score, show the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := parseRounds(rounds)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()

			if username != "" {
				if _, err := wait(s, s.SignUp(ctx, username, creds.Email, creds.Password)); err != nil {
					return err
				}
			} else if err := s.signIn(creds.Email, creds.Password); err != nil {
				return err
			}

			var best int64
			for i, score := range scores {
				if opts.Format == "text" {
					fmt.Fprintf(cmd.OutOrStdout(), "Round %d: caught %d presents\n", i+1, score)
				}
				out, err := wait(s, s.SubmitScore(ctx, score))
				if err != nil {
					return err
				}
				best = out.Highscore
			}
			entries, err := wait(s, s.FetchLeaderboard(ctx))
			if err != nil {
				return err
			}
			s.SignOut()
			return s.emit(map[string]any{"highscore": best, "leaderboard": entries})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "sign up with this name instead of signing in")
	cmd.Flags().StringVar(&rounds, "rounds", "", "comma separated scores, one per round")
	_ = cmd.MarkFlagRequired("rounds")
	creds.bind(cmd, true)
	return cmd
}

func parseRounds(raw string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("round score %q: %w", part, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no rounds given")
	}
	return out, nil
}
