package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchdeck/internal/deck"
	"github.com/spigell/matchdeck/internal/filtering"
	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/profiles"
)

type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]profiles.Profile
	err     error
	release chan struct{}
	queries []string
	limits  []int
}

func (s *stubSearcher) Search(ctx context.Context, params *profiles.SearchParams) (*profiles.Profiles, error) {
	s.mu.Lock()
	s.queries = append(s.queries, params.Query)
	s.limits = append(s.limits, params.Limit)
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.err != nil {
		return nil, s.err
	}
	return &profiles.Profiles{Items: append([]profiles.Profile(nil), s.results[params.Query]...)}, nil
}

func threeProfiles() []profiles.Profile {
	return []profiles.Profile{
		{ID: "A", Name: "Dr. A"},
		{ID: "B", Name: "Dr. B"},
		{ID: "C", Name: "Dr. C"},
	}
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search was not applied in time")
	}
}

func newSession(searcher Searcher, sched *deck.ManualScheduler) *Session {
	return New(searcher, Options{
		DeckOptions: []deck.Option{deck.WithScheduler(sched)},
		Filters:     []filtering.Filter{filtering.NewDedupe()},
	})
}

func TestSubmitReviewScenario(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]profiles.Profile{"protein folding": threeProfiles()}}
	sched := deck.NewManualScheduler()
	s := newSession(searcher, sched)

	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Nil(t, s.Deck())

	done, err := s.Submit(context.Background(), "  protein folding ")
	require.NoError(t, err)
	wait(t, done)

	require.Equal(t, PhaseResults, s.Phase())
	d := s.Deck()
	require.NotNil(t, d)
	assert.Equal(t, []string{"protein folding"}, searcher.queries)
	assert.Equal(t, []int{profiles.DefaultLimit}, searcher.limits)

	for _, dir := range []gesture.Direction{gesture.Right, gesture.Left, gesture.Right} {
		require.True(t, d.Commit(dir))
		require.Equal(t, 1, sched.Fire())
	}

	ids := make([]string, 0)
	for _, p := range s.Shortlist() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"A", "C"}, ids)

	snap := s.Snapshot()
	require.NotNil(t, snap.Deck)
	assert.Equal(t, 3, snap.Deck.Cursor)
	assert.Equal(t, "exhausted", snap.Deck.State)
	assert.True(t, snap.Complete)
	assert.Equal(t, 2, snap.Shortlisted)
}

func TestSubmitEmptyQuery(t *testing.T) {
	searcher := &stubSearcher{}
	s := newSession(searcher, deck.NewManualScheduler())

	done, err := s.Submit(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Nil(t, done)
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, searcher.queries)
	assert.Equal(t, uint64(0), s.Snapshot().Generation)
}

func TestSubmitNoResults(t *testing.T) {
	s := newSession(&stubSearcher{}, deck.NewManualScheduler())

	done, err := s.Submit(context.Background(), "quantum foo")
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, PhaseNoResults, s.Phase())
	assert.Nil(t, s.Deck())
	assert.Nil(t, s.Snapshot().Deck)
}

func TestSubmitError(t *testing.T) {
	searcher := &stubSearcher{err: &profiles.StatusError{Status: "502 Bad Gateway", Code: 502, Body: "upstream down"}}
	s := newSession(searcher, deck.NewManualScheduler())

	done, err := s.Submit(context.Background(), "anything")
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, PhaseErrored, s.Phase())
	assert.Nil(t, s.Deck())

	var statusErr *profiles.StatusError
	require.ErrorAs(t, s.LastError(), &statusErr)
	assert.Contains(t, s.Snapshot().Error, "upstream down")

	searcher.err = nil
	done, err = s.Submit(context.Background(), "anything")
	require.NoError(t, err)
	wait(t, done)
	assert.NoError(t, s.LastError())
	assert.Equal(t, PhaseNoResults, s.Phase())
}

func TestSubmitWhileSearching(t *testing.T) {
	searcher := &stubSearcher{release: make(chan struct{}), results: map[string][]profiles.Profile{"a": threeProfiles()}}
	s := newSession(searcher, deck.NewManualScheduler())

	done, err := s.Submit(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, PhaseSearching, s.Phase())

	_, err = s.Submit(context.Background(), "b")
	assert.ErrorIs(t, err, ErrSearchInProgress)

	close(searcher.release)
	wait(t, done)
	assert.Equal(t, PhaseResults, s.Phase())
	assert.Equal(t, []string{"a"}, searcher.queries)
}

func TestNewSearchReplacesDeck(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]profiles.Profile{
		"first":  threeProfiles(),
		"second": {{ID: "X"}},
	}}
	sched := deck.NewManualScheduler()
	s := newSession(searcher, sched)

	done, err := s.Submit(context.Background(), "first")
	require.NoError(t, err)
	wait(t, done)
	first := s.Deck()
	require.True(t, first.Commit(gesture.Right))

	done, err = s.Submit(context.Background(), "second")
	require.NoError(t, err)
	wait(t, done)

	// The settle edge of the replaced deck was stopped.
	assert.Equal(t, 0, sched.Fire())
	assert.False(t, first.Commit(gesture.Right))

	second := s.Deck()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, second.Len())

	require.True(t, second.Commit(gesture.Right))
	sched.Fire()

	// Shortlist accumulates across decks.
	list := s.Shortlist()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, "X", list[1].ID)
}

func TestStaleResponseDiscarded(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	searcher := &stubSearcher{release: make(chan struct{}), results: map[string][]profiles.Profile{"a": threeProfiles()}}
	s := New(searcher, Options{Logger: zap.New(core)})

	done, err := s.Submit(context.Background(), "a")
	require.NoError(t, err)

	s.Close()
	close(searcher.release)
	wait(t, done)

	assert.Nil(t, s.Deck())
	assert.Equal(t, PhaseSearching, s.Phase())
	assert.Equal(t, 1, observed.FilterMessage("discarding stale search response").Len())

	_, err = s.Submit(context.Background(), "a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOnChangeNotifications(t *testing.T) {
	var (
		mu     sync.Mutex
		phases []string
	)
	searcher := &stubSearcher{results: map[string][]profiles.Profile{"a": {{ID: "A"}}}}
	sched := deck.NewManualScheduler()
	s := New(searcher, Options{
		DeckOptions: []deck.Option{deck.WithScheduler(sched)},
		OnChange: func(snap Snapshot) {
			mu.Lock()
			phases = append(phases, snap.Phase)
			mu.Unlock()
		},
	})

	done, err := s.Submit(context.Background(), "a")
	require.NoError(t, err)
	wait(t, done)

	require.True(t, s.Deck().Commit(gesture.Right))
	sched.Fire()

	mu.Lock()
	defer mu.Unlock()
	// searching, results, shortlisted, advanced
	assert.Equal(t, []string{"searching", "results", "results", "results"}, phases)
}

func TestCommitDuringSettleDoesNotDoubleShortlist(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]profiles.Profile{"a": threeProfiles()}}
	sched := deck.NewManualScheduler()
	s := newSession(searcher, sched)

	done, err := s.Submit(context.Background(), "a")
	require.NoError(t, err)
	wait(t, done)

	d := s.Deck()
	require.True(t, d.Commit(gesture.Right))
	assert.False(t, d.Commit(gesture.Right))
	assert.False(t, d.Commit(gesture.Left))
	sched.Fire()

	assert.Len(t, s.Shortlist(), 1)
	assert.Equal(t, 1, d.Snapshot().Cursor)
}

func TestExportShortlist(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]profiles.Profile{"a": threeProfiles()}}
	sched := deck.NewManualScheduler()
	s := newSession(searcher, sched)

	_, err := s.ExportShortlist()
	assert.True(t, errors.Is(err, ErrEmptyShortlist))

	done, err := s.Submit(context.Background(), "a")
	require.NoError(t, err)
	wait(t, done)
	require.True(t, s.Deck().Commit(gesture.Right))
	sched.Fire()

	path, err := s.ExportShortlist()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profile_id": "A"`)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "no_results", PhaseNoResults.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}

func TestSnapshotMessage(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want string
	}{
		{snap: Snapshot{Phase: "idle"}, want: "Enter a research interest to start."},
		{snap: Snapshot{Phase: "searching", Query: "ml"}, want: `Searching for researchers matching "ml"...`},
		{snap: Snapshot{Phase: "no_results", Query: "quantum foo"}, want: `No professors found matching "quantum foo". Try a different search term.`},
		{snap: Snapshot{Phase: "errored", Error: "boom"}, want: "Error: boom"},
		{snap: Snapshot{Phase: "results", Deck: &deck.Snapshot{Empty: true, State: "exhausted"}}, want: "Nothing to review."},
		{snap: Snapshot{Phase: "results", Deck: &deck.Snapshot{Total: 2, Cursor: 2, State: "exhausted"}}, want: "All done! You've reviewed all professors."},
		{snap: Snapshot{Phase: "results", Deck: &deck.Snapshot{Total: 2, State: "reviewing", Progress: "1 / 2"}}, want: "1 / 2"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.snap.Message())
	}
}
