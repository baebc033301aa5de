// Package responder picks canned replies for a classified category.
package responder

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
)

// RandomSource chooses an index in [0, n). Sessions share one source, so
// it must be safe for concurrent use; wrap a *rand.Rand with Locked.
type RandomSource interface {
	IntN(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// Locked serializes calls to src.
func Locked(src RandomSource) RandomSource {
	switch src.(type) {
	case globalSource, FixedSource, *lockedSource:
		return src
	}
	return &lockedSource{src: src}
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource is safe for concurrent use.
var DefaultSource RandomSource = globalSource{}

// FixedSource always picks index i modulo the pool size.
type FixedSource int

// IntN implements RandomSource.
func (f FixedSource) IntN(n int) int {
	i := int(f) % n
	if i < 0 {
		i += n
	}
	return i
}

// Pool maps each category to its candidate replies.
type Pool map[intent.Category][]local.TextSet

// Selector returns one reply per call, uniformly at random from the pool.
type Selector struct {
	pool     Pool
	src      RandomSource
	language local.Language
}

// New validates that every advisor category has at least one reply and
// returns a selector rendering replies in language. A nil src uses
// DefaultSource.
func New(pool Pool, src RandomSource, language local.Language) (*Selector, error) {
	for _, c := range intent.Categories() {
		if len(pool[c]) == 0 {
			return nil, fmt.Errorf("response pool has no replies for category %q", c)
		}
	}
	if src == nil {
		src = DefaultSource
	}
	return &Selector{pool: pool, src: src, language: language}, nil
}

// Select returns a reply for c. It panics if c is outside the advisor
// set; a category without a pool is a gap in the keyword table, not
// something to paper over at runtime.
func (s *Selector) Select(c intent.Category) string {
	replies := s.replies(c)
	return replies[s.src.IntN(len(replies))].Text(s.language)
}

// Candidates returns every reply Select can produce for c.
func (s *Selector) Candidates(c intent.Category) []string {
	replies := s.replies(c)
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		out = append(out, r.Text(s.language))
	}
	return out
}

// Language returns the language replies are rendered in.
func (s *Selector) Language() local.Language {
	return s.language
}

func (s *Selector) replies(c intent.Category) []local.TextSet {
	if !c.Valid() {
		panic(fmt.Sprintf("responder: category %q is not an advisor category", c))
	}
	return s.pool[c]
}
