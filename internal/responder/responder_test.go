package responder

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
)

func TestSelectReturnsPoolMember(t *testing.T) {
	for _, lang := range []local.Language{local.Bilingual, local.English, local.Hindi} {
		sel, err := New(AdvisorPool, rand.New(rand.NewPCG(1, 2)), lang)
		require.NoError(t, err)

		for _, c := range intent.Categories() {
			candidates := sel.Candidates(c)
			require.Len(t, candidates, len(AdvisorPool[c]))
			for i := 0; i < 50; i++ {
				assert.Contains(t, candidates, sel.Select(c), "category %s", c)
			}
		}
	}
}

func TestSelectWithFixedSource(t *testing.T) {
	sel, err := New(AdvisorPool, FixedSource(1), local.English)
	require.NoError(t, err)

	assert.Equal(t, "Use pheromone traps for stem borer pest.", sel.Select(intent.Pest))
	assert.Equal(t, local.English, sel.Language())

	wrapped, err := New(AdvisorPool, FixedSource(-1), local.English)
	require.NoError(t, err)
	assert.Equal(t, "Use organic pesticides. Avoid chemical medicines.", wrapped.Select(intent.Pest))
}

func TestSelectBilingualFormat(t *testing.T) {
	sel, err := New(AdvisorPool, FixedSource(0), local.Bilingual)
	require.NoError(t, err)

	assert.Equal(t,
		"मिट्टी की जांच कराएं। pH 6.5-7.5 के बीच होना चाहिए। • Get soil tested. pH should be between 6.5-7.5.",
		sel.Select(intent.Soil))
}

func TestSelectUnknownCategoryPanics(t *testing.T) {
	sel, err := New(AdvisorPool, nil, local.English)
	require.NoError(t, err)

	assert.Panics(t, func() { sel.Select(intent.Scheme) })
	assert.Panics(t, func() { sel.Candidates("bogus") })
}

func TestNewRejectsIncompletePool(t *testing.T) {
	pool := Pool{
		intent.Crop: AdvisorPool[intent.Crop],
	}
	_, err := New(pool, nil, local.English)
	require.Error(t, err)

	pool = Pool{}
	for c, replies := range AdvisorPool {
		pool[c] = replies
	}
	pool[intent.Soil] = nil
	_, err = New(pool, nil, local.English)
	assert.ErrorContains(t, err, "soil")
}

func TestSelectCoversWholePool(t *testing.T) {
	sel, err := New(AdvisorPool, rand.New(rand.NewPCG(7, 7)), local.English)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		seen[sel.Select(intent.Weather)] = true
	}
	assert.Len(t, seen, len(AdvisorPool[intent.Weather]))
}

func TestSuggestionsClassifyAsTheirCategory(t *testing.T) {
	classifier := intent.NewAdvisor()
	got := Suggestions(local.Bilingual)
	require.Len(t, got, 4)

	seen := make(map[intent.Category]bool)
	for _, s := range got {
		assert.Equal(t, s.Category, classifier.Classify(s.Message), "message %q", s.Message)
		assert.Contains(t, s.Label, local.Separator)
		seen[s.Category] = true
	}
	assert.Len(t, seen, 4)

	assert.Equal(t, "Crop Recommendation", Suggestions(local.English)[0].Label)
	assert.Equal(t, "🌾 फसल की सिफारिश", Suggestions(local.Hindi)[0].Label)
}

func TestLockedSourceIsSafeForConcurrentUse(t *testing.T) {
	src := Locked(rand.New(rand.NewPCG(3, 4)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				n := src.IntN(5)
				if n < 0 || n >= 5 {
					t.Errorf("IntN out of range: %d", n)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultSource, Locked(DefaultSource))
	assert.Equal(t, FixedSource(2), Locked(FixedSource(2)))
}
