// Package session owns one review session: the query lifecycle, the deck built
// for the latest results and the shortlist accumulated across decks.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/deck"
	"github.com/spigell/matchdeck/internal/filtering"
	"github.com/spigell/matchdeck/internal/logger"
	"github.com/spigell/matchdeck/internal/profiles"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseResults
	PhaseNoResults
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSearching:
		return "searching"
	case PhaseResults:
		return "results"
	case PhaseNoResults:
		return "no_results"
	case PhaseErrored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	// ErrEmptyQuery is returned for a blank query. Nothing is issued and the
	// session is left as it was.
	ErrEmptyQuery = profiles.ErrEmptyQuery
	// ErrSearchInProgress is returned while a previous search has not been applied yet.
	ErrSearchInProgress = errors.New("a search is already in progress")
	ErrClosed           = errors.New("session is closed")
)

// Searcher is satisfied by *profiles.Client.
type Searcher interface {
	Search(ctx context.Context, params *profiles.SearchParams) (*profiles.Profiles, error)
}

type Options struct {
	Limit       int
	Filters     []filtering.Filter
	DeckOptions []deck.Option
	Logger      *zap.Logger
	// OnChange receives the current snapshot after every state change. It is
	// called without the session lock held and must not block.
	OnChange func(Snapshot)
}

type Snapshot struct {
	SessionID   string         `json:"session_id"`
	Phase       string         `json:"phase"`
	Query       string         `json:"query,omitempty"`
	Error       string         `json:"error,omitempty"`
	Deck        *deck.Snapshot `json:"deck,omitempty"`
	Complete    bool           `json:"complete"`
	Shortlisted int            `json:"shortlisted"`
	Generation  uint64         `json:"generation"`
}

type Session struct {
	mu sync.Mutex

	id       string
	searcher Searcher
	opts     Options
	logger   *zap.Logger

	phase      Phase
	query      string
	lastErr    error
	deck       *deck.Controller
	complete   bool
	generation uint64
	closed     bool
	shortlist  []profiles.Profile
}

func New(searcher Searcher, opts Options) *Session {
	id := uuid.NewString()
	if opts.Limit <= 0 {
		opts.Limit = profiles.DefaultLimit
	}

	return &Session{
		id:       id,
		searcher: searcher,
		opts:     opts,
		logger:   logger.WithSession(opts.Logger, id, ""),
	}
}

func (s *Session) ID() string { return s.id }

// Submit starts a search for query. The returned channel is closed once the
// response has been applied or discarded.
func (s *Session) Submit(ctx context.Context, query string) (<-chan struct{}, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.phase == PhaseSearching {
		s.mu.Unlock()
		return nil, ErrSearchInProgress
	}

	s.generation++
	gen := s.generation
	previous := s.deck
	s.deck = nil
	s.phase = PhaseSearching
	s.query = query
	s.lastErr = nil
	s.complete = false
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	s.logger.Info("starting the search", zap.String(logger.FieldQuery, query), zap.Uint64("generation", gen))
	s.notify()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.fetch(ctx, gen, query)
	}()

	return done, nil
}

func (s *Session) fetch(ctx context.Context, gen uint64, query string) {
	log := logger.WithFields(s.logger, zap.String(logger.FieldQuery, query))

	result, err := s.searcher.Search(ctx, &profiles.SearchParams{Query: query, Limit: s.opts.Limit})
	if err == nil {
		if result == nil {
			result = &profiles.Profiles{}
		}
		result, err = filtering.Run(filtering.WithQuery(ctx, query), log, s.opts.Filters, result)
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		log.Debug("discarding stale search response", zap.Uint64("generation", gen))
		return
	}

	switch {
	case err != nil:
		s.phase = PhaseErrored
		s.lastErr = err
	case result.Len() == 0:
		s.phase = PhaseNoResults
	default:
		s.phase = PhaseResults
		s.deck = deck.New(result.Items, s.callbacks(gen, log), s.deckOptions(log)...)
	}
	phase := s.phase
	s.mu.Unlock()

	switch phase {
	case PhaseErrored:
		log.Error("search failed", zap.Error(err))
	case PhaseNoResults:
		log.Info("no profiles found")
	default:
		log.Info("profiles ready for review", zap.Int("count", result.Len()))
	}

	s.notify()
}

func (s *Session) deckOptions(log *zap.Logger) []deck.Option {
	opts := make([]deck.Option, 0, len(s.opts.DeckOptions)+1)
	opts = append(opts, deck.WithLogger(log))
	return append(opts, s.opts.DeckOptions...)
}

// callbacks ignore events from a deck that has been replaced in the meantime.
func (s *Session) callbacks(gen uint64, log *zap.Logger) deck.Callbacks {
	current := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.closed && gen == s.generation
	}

	return deck.Callbacks{
		OnMatch: func(p profiles.Profile) {
			s.mu.Lock()
			if s.closed || gen != s.generation {
				s.mu.Unlock()
				return
			}
			s.shortlist = append(s.shortlist, p)
			size := len(s.shortlist)
			s.mu.Unlock()

			log.Info("shortlisted", zap.String(logger.FieldProfileID, p.ID), zap.String("name", p.Name), zap.Int("shortlisted", size))
			s.notify()
		},
		OnSkip: func(p profiles.Profile) {
			if !current() {
				return
			}
			log.Info("skipped", zap.String(logger.FieldProfileID, p.ID), zap.String("name", p.Name))
		},
		OnComplete: func() {
			s.mu.Lock()
			if s.closed || gen != s.generation {
				s.mu.Unlock()
				return
			}
			s.complete = true
			size := len(s.shortlist)
			s.mu.Unlock()

			log.Info("review complete", zap.Int("shortlisted", size))
		},
		OnAdvance: func(deck.Snapshot) {
			if current() {
				s.notify()
			}
		},
	}
}

func (s *Session) notify() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.Snapshot())
	}
}

// Deck returns the deck for the latest results, or nil unless the session is
// in the results phase.
func (s *Session) Deck() *deck.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		SessionID:   s.id,
		Phase:       s.phase.String(),
		Query:       s.query,
		Complete:    s.complete,
		Shortlisted: len(s.shortlist),
		Generation:  s.generation,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	d := s.deck
	s.mu.Unlock()

	if d != nil {
		ds := d.Snapshot()
		snap.Deck = &ds
	}
	return snap
}

// Close discards any in-flight response and stops the current deck.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	d := s.deck
	s.mu.Unlock()

	if d != nil {
		d.Close()
	}
}

// Message is the status line shown above or instead of the card stack.
func (s Snapshot) Message() string {
	switch s.Phase {
	case PhaseSearching.String():
		return fmt.Sprintf("Searching for researchers matching %q...", s.Query)
	case PhaseNoResults.String():
		return fmt.Sprintf("No professors found matching %q. Try a different search term.", s.Query)
	case PhaseErrored.String():
		return "Error: " + s.Error
	case PhaseResults.String():
		if s.Deck == nil {
			return ""
		}
		if s.Deck.Empty {
			return "Nothing to review."
		}
		if s.Deck.State == deck.StateExhausted.String() {
			return "All done! You've reviewed all professors."
		}
		return s.Deck.Progress
	default:
		return "Enter a research interest to start."
	}
}
