package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/internal/domain"
	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
	"github.com/krishimitra/advisor/internal/responder"
)

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	sel, err := responder.New(responder.AdvisorPool, responder.FixedSource(0), local.English)
	require.NoError(t, err)
	return NewSession("user-1:tab-1", intent.NewAdvisor(), sel, opts)
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestSubmitCropHasPestsScenario(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{})

	turn, err := s.Submit(context.Background(), "my crop has pests")
	require.NoError(t, err)

	assert.Equal(t, intent.Pest, turn.Category)
	assert.Contains(t, responderCandidates(t, intent.Pest), turn.Reply.Text)
	assert.Equal(t, domain.AuthorUser, turn.User.Author)
	assert.Equal(t, "my crop has pests", turn.User.Text)
	assert.Equal(t, domain.AuthorAssistant, turn.Reply.Author)

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, turn.User, transcript[0])
	assert.Equal(t, turn.Reply, transcript[1])
	assert.Equal(t, StateIdle, s.State())
}

func responderCandidates(t *testing.T, c intent.Category) []string {
	t.Helper()
	sel, err := responder.New(responder.AdvisorPool, nil, local.English)
	require.NoError(t, err)
	return sel.Candidates(c)
}

func TestSubmitEmptyInputIsNoop(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{})

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := s.Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Empty(t, s.Transcript())
	assert.Equal(t, StateIdle, s.State())
}

func TestSequentialTurnsAlternateInOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	s := newTestSession(t, Options{Now: now})

	inputs := []string{"crop advice", "weather?", "soil test", "hello", "कीट लग गए"}
	for _, in := range inputs {
		_, err := s.Submit(context.Background(), in)
		require.NoError(t, err)
	}

	transcript := s.Transcript()
	require.Len(t, transcript, 2*len(inputs))
	ids := make(map[string]bool)
	for i, msg := range transcript {
		want := domain.AuthorUser
		if i%2 == 1 {
			want = domain.AuthorAssistant
		}
		assert.Equal(t, want, msg.Author, "message %d", i)
		if i > 0 {
			assert.True(t, msg.CreatedAt.After(transcript[i-1].CreatedAt), "message %d out of order", i)
		}
		assert.False(t, ids[msg.ID], "duplicate id %s", msg.ID)
		ids[msg.ID] = true
	}
	for i, in := range inputs {
		assert.Equal(t, in, transcript[2*i].Text)
	}
}

func TestSubmitWhileAwaitingIsRejected(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{ThinkDelay: 200 * time.Millisecond})

	type result struct {
		turn Turn
		err  error
	}
	first := make(chan result, 1)
	go func() {
		turn, err := s.Submit(context.Background(), "weather today")
		first <- result{turn, err}
	}()

	waitForState(t, s, StateAwaitingResponse)
	assert.Equal(t, "weather today", s.Pending())

	_, err := s.Submit(context.Background(), "soil")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, s.Transcript())

	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, intent.Weather, res.turn.Category)
	assert.Len(t, s.Transcript(), 2)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Pending())

	_, err = s.Submit(context.Background(), "soil")
	require.NoError(t, err)
	assert.Len(t, s.Transcript(), 4)
}

func TestSubmitContextCancelledAppendsNothing(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{ThinkDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "crop")
		done <- err
	}()

	waitForState(t, s, StateAwaitingResponse)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, s.Transcript())
	assert.Equal(t, StateIdle, s.State())
}

func TestCloseCancelsPendingTurn(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{ThinkDelay: time.Minute})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "crop")
		done <- err
	}()

	waitForState(t, s, StateAwaitingResponse)
	s.Close()
	s.Close()

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.True(t, s.Closed())
	assert.Empty(t, s.Transcript())

	_, err := s.Submit(context.Background(), "crop")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseDropsTranscript(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{})

	_, err := s.Submit(context.Background(), "crop")
	require.NoError(t, err)
	require.Len(t, s.Transcript(), 2)

	s.Close()
	assert.Empty(t, s.Transcript())
}

func TestTranscriptIsACopy(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{})

	_, err := s.Submit(context.Background(), "crop")
	require.NoError(t, err)

	got := s.Transcript()
	got[0].Text = "tampered"
	assert.Equal(t, "crop", s.Transcript()[0].Text)
}

func TestGreetingFollowsLanguage(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, Options{})

	assert.Equal(t, responder.Greeting.Text(local.English), s.Greeting())
	assert.Equal(t, local.English, s.Language())
	assert.Equal(t, "user-1:tab-1", s.ID())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting-response", StateAwaitingResponse.String())
	assert.Equal(t, "unknown", State(42).String())
}
