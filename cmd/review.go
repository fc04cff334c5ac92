package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/card"
	"github.com/spigell/matchdeck/internal/deck"
	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/logger"
	"github.com/spigell/matchdeck/internal/session"
	"github.com/spigell/matchdeck/internal/utils"
)

const (
	PromptInterested = "Interested (swipe right)"
	PromptSkip       = "Skip (swipe left)"
	PromptStop       = "Stop reviewing"
	PromptNewSearch  = "New search"
	PromptShortlist  = "Show shortlist"
	PromptExport     = "Dump shortlist to file"
	PromptQuit       = "Quit"

	settlePollInterval = 10 * time.Millisecond
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review matching profiles in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("query", "q", "", "research interest to search for first")
}

// prompter is the interactive surface of the review loop.
type prompter interface {
	Ask(label string) (string, error)
	Choose(label string, items []string) (string, error)
}

type promptuiPrompter struct{}

func (promptuiPrompter) Ask(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	return p.Run()
}

func (promptuiPrompter) Choose(label string, items []string) (string, error) {
	s := promptui.Select{Label: label, Items: items}
	_, choice, err := s.Run()
	return choice, err
}

func review(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the matchdeck review", zap.String("version", version))

	sess, err := newSession(ctx, config, logger, nil)
	if err != nil {
		logger.Fatal("preparing a review session", zap.Error(err))
	}
	defer sess.Close()

	r := &reviewer{
		session: sess,
		gesture: config.Gesture,
		prompt:  promptuiPrompter{},
		out:     cmd.OutOrStdout(),
		logger:  logger,
	}

	query, _ := cmd.Flags().GetString("query")
	if err := r.run(ctx, query); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// reviewer drives a session from the terminal. Every decision is a simulated
// full swipe of the top card, so it takes the same path as a browser drag.
type reviewer struct {
	session *session.Session
	gesture gesture.Config
	prompt  prompter
	out     io.Writer
	logger  *zap.Logger
}

func (r *reviewer) run(ctx context.Context, query string) error {
	for {
		var err error
		if query == "" {
			query, err = r.prompt.Ask("Research interest")
			if err != nil {
				return promptErr(err)
			}
		}

		submitted := query
		query = ""

		done, err := r.session.Submit(ctx, submitted)
		if errors.Is(err, session.ErrEmptyQuery) {
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(r.out, "Searching for researchers matching %q...\n", submitted)

		select {
		case <-done:
		case <-ctx.Done():
			return errExit
		}

		snap := r.session.Snapshot()
		switch r.session.Phase() {
		case session.PhaseErrored:
			r.logger.Error("search failed", zap.String("error", snap.Error))
		case session.PhaseNoResults:
			fmt.Fprintln(r.out, snap.Message())
		case session.PhaseResults:
			if err := r.reviewDeck(ctx, r.session.Deck()); err != nil {
				return err
			}
		}

		if err := r.menu(); err != nil {
			return err
		}
	}
}

func (r *reviewer) reviewDeck(ctx context.Context, d *deck.Controller) error {
	for {
		stack := card.Stack(d, 1, r.gesture)
		if len(stack) == 0 {
			fmt.Fprintln(r.out, r.session.Snapshot().Message())
			r.logger.Info("current shortlist", zap.Int("count", len(r.session.Shortlist())))
			return nil
		}

		top := stack[0]
		fmt.Fprintf(r.out, "\n[%s]\n%s\n", d.Snapshot().Progress, top.View().Text())

		choice, err := r.prompt.Choose("Decision", []string{PromptInterested, PromptSkip, PromptStop})
		if err != nil {
			return promptErr(err)
		}

		var offset float64
		switch choice {
		case PromptInterested:
			offset = r.swipeDistance()
		case PromptSkip:
			offset = -r.swipeDistance()
		case PromptStop:
			return nil
		default:
			return fmt.Errorf("invalid action: %s", choice)
		}

		top.Drag(offset)
		dir, committed := top.Release(0)
		r.logger.Debug("swipe", zap.String("direction", dir.String()), zap.Bool("committed", committed))
		if !committed {
			continue
		}

		if err := utils.WaitUntil(ctx, settlePollInterval, func() bool {
			return d.State() != deck.StateTransitioning
		}); err != nil {
			return errExit
		}
	}
}

// swipeDistance is a drag that fully fades the card and clears the threshold.
func (r *reviewer) swipeDistance() float64 {
	cfg := r.gesture.WithDefaults()
	return math.Max(cfg.FadeEnd, cfg.CommitThreshold+1)
}

func (r *reviewer) menu() error {
	for {
		choice, err := r.prompt.Choose("Next?", []string{PromptNewSearch, PromptShortlist, PromptExport, PromptQuit})
		if err != nil {
			return promptErr(err)
		}

		switch choice {
		case PromptNewSearch:
			return nil
		case PromptShortlist:
			r.printShortlist()
		case PromptExport:
			filename, err := r.session.ExportShortlist()
			if errors.Is(err, session.ErrEmptyShortlist) {
				fmt.Fprintln(r.out, "Shortlist is empty.")
				continue
			}
			if err != nil {
				return fmt.Errorf("dump shortlist to file: %w", err)
			}
			fmt.Fprintf(r.out, "Shortlist saved to %s\n", filename)
		case PromptQuit:
			r.logger.Info("exiting", zap.String("reason", "quit from prompt"))
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", choice)
		}
	}
}

func (r *reviewer) printShortlist() {
	list := r.session.Shortlist()
	fmt.Fprintf(r.out, "Your shortlist (%d)\n", len(list))
	for i, p := range list {
		line := fmt.Sprintf("%d. %s", i+1, p.Name)
		if p.Title != "" {
			line += ", " + p.Title
		}
		if p.Scores != nil {
			line += fmt.Sprintf(" (%d%%)", int(math.Round(p.Scores.Final*100)))
		}
		fmt.Fprintln(r.out, line)
	}
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return errExit
	}
	return err
}
