// Package moderation decides what happens to a user message before it ever
// reaches the model: scripted trigger replies and the safety filter.
package moderation

import (
	"fmt"
	"time"

	"zerotwo/pkg/lexicon"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MatchTimeout bounds a single pattern evaluation.
const MatchTimeout = 100 * time.Millisecond

type categoryPattern struct {
	name string
	re   *regexp2.Regexp
}

// SafetyClassifier flags messages that match any safety category.
type SafetyClassifier struct {
	categories []categoryPattern
	logger     *zap.Logger
}

// NewSafetyClassifier compiles the lexicon's safety categories.
func NewSafetyClassifier(lex *lexicon.Lexicon, logger *zap.Logger) (*SafetyClassifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SafetyClassifier{logger: logger}
	for _, cat := range lex.SafetyCategories {
		re, err := regexp2.Compile(cat.Pattern, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("compile safety category %q: %w", cat.Name, err)
		}
		re.MatchTimeout = MatchTimeout
		c.categories = append(c.categories, categoryPattern{name: cat.Name, re: re})
	}
	return c, nil
}

// IsUnsafe reports whether text matches any safety pattern.
func (c *SafetyClassifier) IsUnsafe(text string) bool {
	return c.Category(text) != ""
}

// Category returns the first matching category name, or "" if the text is
// clean. Only meant for logging.
//
// A pattern that fails to evaluate counts as no match.
func (c *SafetyClassifier) Category(text string) string {
	lowered := Lower(text)
	for _, cat := range c.categories {
		ok, err := cat.re.MatchString(lowered)
		if err != nil {
			c.logger.Warn("safety pattern failed", zap.String("category", cat.name), zap.Error(err))
			continue
		}
		if ok {
			return cat.name
		}
	}
	return ""
}

// Lower lower-cases text with Russian casing rules.
// A Caser is stateful, so a fresh one is built per call.
func Lower(text string) string {
	return cases.Lower(language.Russian).String(text)
}
