package moderation

import (
	"strings"

	"zerotwo/pkg/lexicon"
)

// TriggerInterceptor answers persona keywords with a scripted line.
type TriggerInterceptor struct {
	triggers []lexicon.Trigger
}

func NewTriggerInterceptor(lex *lexicon.Lexicon) *TriggerInterceptor {
	triggers := make([]lexicon.Trigger, 0, len(lex.Triggers))
	for _, t := range lex.Triggers {
		triggers = append(triggers, lexicon.Trigger{Keyword: Lower(t.Keyword), Reply: t.Reply})
	}
	return &TriggerInterceptor{triggers: triggers}
}

// Match returns the reply of the first trigger whose keyword occurs in text.
// Declaration order decides ties.
func (t *TriggerInterceptor) Match(text string) (string, bool) {
	lowered := Lower(text)
	for _, tr := range t.triggers {
		if tr.Keyword != "" && strings.Contains(lowered, tr.Keyword) {
			return tr.Reply, true
		}
	}
	return "", false
}

// ContainsAny reports whether the lower-cased text contains any phrase.
func ContainsAny(text string, phrases []string) bool {
	lowered := Lower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lowered, Lower(p)) {
			return true
		}
	}
	return false
}
