// Package intent maps free text to a topic category by keyword matching.
//
// Matching is driven by a declarative Table: rules are tried in declaration
// order and the first rule with a keyword contained in the lowercased input
// wins. Keywords are plain substrings, so one table can mix English and
// Hindi without per-language code.
package intent

import "strings"

// Category is a topic label produced by classification.
type Category string

// Advisor categories.
const (
	Crop    Category = "crop"
	Weather Category = "weather"
	Pest    Category = "pest"
	Soil    Category = "soil"
	Default Category = "default"
)

// Labels used by the voice and support tables.
const (
	Price  Category = "price"
	Scheme Category = "scheme"
)

var advisorCategories = []Category{Crop, Weather, Pest, Soil, Default}

// Categories returns the closed set of advisor categories.
func Categories() []Category {
	out := make([]Category, len(advisorCategories))
	copy(out, advisorCategories)
	return out
}

// Valid reports whether c belongs to the advisor's closed set.
func (c Category) Valid() bool {
	for _, known := range advisorCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Rule binds a category to the keywords that select it.
type Rule struct {
	Category Category
	Keywords []string
}

// Table is an ordered list of rules. Earlier rules take precedence.
type Table []Rule

// Classifier applies a Table to input text.
type Classifier struct {
	rules    Table
	fallback Category
}

// New returns a classifier over table. Inputs matching no rule classify as
// fallback. The table is copied and its keywords normalized.
func New(table Table, fallback Category) *Classifier {
	rules := make(Table, 0, len(table))
	for _, rule := range table {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rules = append(rules, Rule{Category: rule.Category, Keywords: keywords})
	}
	return &Classifier{rules: rules, fallback: fallback}
}

// Classify returns the category of the first matching rule, or the
// fallback when nothing matches.
func (c *Classifier) Classify(text string) Category {
	normalized := strings.ToLower(text)
	for _, rule := range c.rules {
		if containsAny(normalized, rule.Keywords) {
			return rule.Category
		}
	}
	return c.fallback
}

// Matches returns every category whose rule matches text, in precedence
// order. The first element, if any, is what Classify returns.
func (c *Classifier) Matches(text string) []Category {
	normalized := strings.ToLower(text)
	var out []Category
	for _, rule := range c.rules {
		if containsAny(normalized, rule.Keywords) {
			out = append(out, rule.Category)
		}
	}
	return out
}

// Fallback returns the category used when no rule matches.
func (c *Classifier) Fallback() Category {
	return c.fallback
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
