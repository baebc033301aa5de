// Package chat runs advisor conversations: it keeps each session's
// transcript and turns a user submission into a canned assistant reply.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/krishimitra/advisor/internal/domain"
	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
	"github.com/krishimitra/advisor/internal/responder"
)

var (
	ErrEmptyInput = errors.New("empty input")
	ErrBusy       = errors.New("session is awaiting a response")
	ErrClosed     = errors.New("session closed")
)

// State is the session's turn state.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting-response"
	default:
		return "unknown"
	}
}

// Options tune a session.
type Options struct {
	// ThinkDelay and ThinkJitter simulate the assistant thinking: each
	// reply waits ThinkDelay plus a random share of ThinkJitter.
	ThinkDelay  time.Duration
	ThinkJitter time.Duration
	// Source drives reply selection and jitter. Nil uses responder.DefaultSource.
	// It is wrapped with responder.Locked since turns run concurrently.
	Source responder.RandomSource
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Source == nil {
		o.Source = responder.DefaultSource
	}
	o.Source = responder.Locked(o.Source)
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Turn is the result of one completed submission.
type Turn struct {
	User     domain.Message  `json:"user"`
	Reply    domain.Message  `json:"reply"`
	Category intent.Category `json:"category"`
}

// Session is one conversation. Only one turn can be in flight at a time.
type Session struct {
	id         string
	classifier *intent.Classifier
	selector   *responder.Selector
	opts       Options
	done       chan struct{}

	mu         sync.Mutex
	state      State
	pending    string
	transcript []domain.Message
	lastActive time.Time
	closed     bool
}

// NewSession creates an idle session with an empty transcript.
func NewSession(id string, classifier *intent.Classifier, selector *responder.Selector, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:         id,
		classifier: classifier,
		selector:   selector,
		opts:       opts,
		done:       make(chan struct{}),
		lastActive: opts.Now(),
	}
}

// Submit runs one turn. Whitespace-only text returns ErrEmptyInput and
// leaves the session untouched. A submission made while another turn is
// pending returns ErrBusy. On success the user message and the reply are
// appended together; if ctx ends or the session closes first, nothing is
// appended.
func (s *Session) Submit(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Turn{}, ErrClosed
	}
	if s.state == StateAwaitingResponse {
		s.mu.Unlock()
		return Turn{}, ErrBusy
	}
	s.state = StateAwaitingResponse
	s.pending = text
	submittedAt := s.opts.Now()
	s.lastActive = submittedAt
	s.mu.Unlock()

	category := s.classifier.Classify(text)
	replyText := s.selector.Select(category)

	waitErr := s.think(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.pending = ""
	if waitErr != nil {
		return Turn{}, waitErr
	}
	if s.closed {
		return Turn{}, ErrClosed
	}

	repliedAt := s.opts.Now()
	if repliedAt.Before(submittedAt) {
		repliedAt = submittedAt
	}
	turn := Turn{
		User:     domain.NewMessage(domain.AuthorUser, text, submittedAt),
		Reply:    domain.NewMessage(domain.AuthorAssistant, replyText, repliedAt),
		Category: category,
	}
	s.transcript = append(s.transcript, turn.User, turn.Reply)
	s.lastActive = repliedAt
	return turn, nil
}

func (s *Session) think(ctx context.Context) error {
	d := s.opts.ThinkDelay
	if jitter := s.opts.ThinkJitter / time.Millisecond; jitter > 0 {
		d += time.Duration(s.opts.Source.IntN(int(jitter))) * time.Millisecond
	}
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// ID returns the session key.
func (s *Session) ID() string {
	return s.id
}

// Language returns the language replies are rendered in.
func (s *Session) Language() local.Language {
	return s.selector.Language()
}

// Greeting returns the welcome line shown before the first turn. It is
// not part of the transcript.
func (s *Session) Greeting() string {
	return responder.Greeting.Text(s.selector.Language())
}

// Suggestions returns the quick actions shown with the greeting.
func (s *Session) Suggestions() []responder.Suggestion {
	return responder.Suggestions(s.selector.Language())
}

// Transcript returns a copy of the messages so far, oldest first.
func (s *Session) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the text of the in-flight submission, if any.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now := s.opts.Now(); now.After(s.lastActive) {
		s.lastActive = now
	}
}

// LastActive returns when the session was last fetched, or last accepted
// or completed a turn.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close cancels any pending turn, drops the transcript and rejects
// further submissions. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.transcript = nil
	close(s.done)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
