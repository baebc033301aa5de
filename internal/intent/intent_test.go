package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAdvisorCategories(t *testing.T) {
	c := NewAdvisor()

	cases := []struct {
		input string
		want  Category
	}{
		{"Which crop should I grow?", Crop},
		{"मेरी फसल कब बोऊं", Crop},
		{"WHEAT seed rate", Crop},
		{"what is the weather tomorrow", Weather},
		{"क्या आज बारिश होगी", Weather},
		{"my crop has pests", Pest},
		{"पत्तियों पर कीट", Pest},
		{"how do I test my soil", Soil},
		{"कौन सी खाद डालूं", Soil},
		{"tell me a joke", Default},
		{"what is the price of onions", Default},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Classify(tc.input), "input %q", tc.input)
	}
}

func TestClassifyEmptyInputIsDefault(t *testing.T) {
	c := NewAdvisor()

	assert.Equal(t, Default, c.Classify(""))
	assert.Equal(t, Default, c.Classify("   \t\n"))
}

func TestClassifyPrecedenceFollowsDeclarationOrder(t *testing.T) {
	c := NewAdvisor()

	// crop before weather, weather before soil
	assert.Equal(t, Crop, c.Classify("crop weather"))
	assert.Equal(t, Crop, c.Classify("weather for my crop"))
	assert.Equal(t, Weather, c.Classify("soil and weather"))
	assert.Equal(t, Pest, c.Classify("soil pest crop weather"))

	assert.Equal(t, []Category{Pest, Crop, Weather, Soil}, c.Matches("soil pest crop weather"))
	assert.Empty(t, c.Matches("hello"))
}

func TestClassifyCustomTable(t *testing.T) {
	c := New(Table{
		{Category: "b", Keywords: []string{"  Beta "}},
		{Category: "a", Keywords: []string{"alpha", ""}},
	}, "none")

	assert.Equal(t, Category("b"), c.Classify("alpha BETA"))
	assert.Equal(t, Category("a"), c.Classify("ALPHA"))
	assert.Equal(t, Category("none"), c.Classify("gamma"))
	assert.Equal(t, Category("none"), c.Fallback())
}

func TestClassifyIsPure(t *testing.T) {
	c := NewAdvisor()
	inputs := []string{"my crop has pests", "rain", "", "मिट्टी की जांच"}
	for _, in := range inputs {
		first := c.Classify(in)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, c.Classify(in))
		}
	}
}

func TestCategoriesClosedSet(t *testing.T) {
	cats := Categories()
	assert.ElementsMatch(t, []Category{Crop, Weather, Pest, Soil, Default}, cats)
	for _, cat := range cats {
		assert.True(t, cat.Valid())
	}
	assert.False(t, Scheme.Valid())
	assert.False(t, Category("fertilizer").Valid())

	// mutating the returned slice must not affect the package set
	cats[0] = "bogus"
	assert.True(t, Crop.Valid())
}

func TestAdvisorTableCoversEveryCategoryButDefault(t *testing.T) {
	seen := make(map[Category]bool)
	for _, rule := range AdvisorTable {
		assert.NotEmpty(t, rule.Keywords, "rule %s", rule.Category)
		seen[rule.Category] = true
	}
	for _, cat := range Categories() {
		if cat == Default {
			assert.False(t, seen[cat])
			continue
		}
		assert.True(t, seen[cat], "no rule for %s", cat)
	}
}
