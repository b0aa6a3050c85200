package shaper

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

const ellipsis = "..."

// truncateAtDelimiter keeps only the text before the first trailing-off
// marker. The model uses it to trail off; only the first clause is kept.
func (s *Shaper) truncateAtDelimiter(text string) (string, error) {
	if s.lex.Delimiter != "" {
		text, _, _ = strings.Cut(text, s.lex.Delimiter)
	}
	return strings.TrimSpace(text), nil
}

func (s *Shaper) fixTerminology(text string) (string, error) {
	return replaceAll(text, s.terminology)
}

// stripMixedScript drops Latin runs inside tokens but keeps any Cyrillic
// prefix or suffix glued to them.
func (s *Shaper) stripMixedScript(text string) (string, error) {
	return s.mixedScript.ReplaceFunc(text, func(m regexp2.Match) string {
		return m.GroupByNumber(1).String() + m.GroupByNumber(2).String()
	}, -1, -1)
}

func (s *Shaper) applyLexicon(text string) (string, error) {
	return replaceAll(text, s.replacements)
}

// purgeLatinTokens deletes whole whitespace-separated tokens the classifier
// tags as Latin-script.
func (s *Shaper) purgeLatinTokens(text string) (string, error) {
	if s.classifier == nil {
		return text, nil
	}
	tokens := strings.Fields(text)
	kept := tokens[:0:0]
	for _, tok := range tokens {
		if s.classifier.IsLatinScript(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == len(tokens) {
		return text, nil
	}
	return strings.Join(kept, " "), nil
}

func (s *Shaper) stripLeadingNoise(text string) (string, error) {
	return s.leadingNoise.Replace(text, "", -1, 1)
}

func normalizeWhitespace(text string) (string, error) {
	return strings.Join(strings.Fields(text), " "), nil
}

func (s *Shaper) enforceAllowList(text string) (string, error) {
	return strings.Map(func(r rune) rune {
		if s.isAllowed(r) {
			return r
		}
		return -1
	}, text), nil
}

func (s *Shaper) isAllowed(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '_' {
		return true
	}
	_, ok := s.allowed[r]
	return ok
}

// capSentences keeps the first MaxSentences non-empty sentences and joins
// them with the delimiter instead of a period.
func (s *Shaper) capSentences(text string) (string, error) {
	if s.opts.MaxSentences <= 0 {
		return text, nil
	}
	var kept []string
	for _, seg := range strings.FieldsFunc(text, isTerminator) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		kept = append(kept, seg)
		if len(kept) == s.opts.MaxSentences {
			break
		}
	}
	return strings.Join(kept, s.lex.Delimiter), nil
}

func (s *Shaper) padShortReply(text string) (string, error) {
	if len(s.lex.ProvocativePhrases) == 0 || wordCount(text) >= s.opts.MinWords {
		return text, nil
	}
	return strings.TrimSpace(text + " " + s.pick(s.lex.ProvocativePhrases)), nil
}

func (s *Shaper) fallback(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return s.lex.FallbackReply, nil
	}
	return text, nil
}

func (s *Shaper) injectEmoji(text string) (string, error) {
	if len(s.lex.DecorativeEmojis) == 0 || !s.chance(s.opts.EmojiProbability) {
		return text, nil
	}
	return trimOneTerminator(text) + " " + s.pick(s.lex.DecorativeEmojis), nil
}

// hardCap keeps the first two delimiter-joined segments of an over-long
// reply. If that is still too long the reply is cut at MaxWords words.
func (s *Shaper) hardCap(text string) (string, error) {
	if s.opts.MaxWords <= 0 || wordCount(text) <= s.opts.MaxWords {
		return text, nil
	}
	head := text
	if s.lex.Delimiter != "" {
		parts := strings.Split(text, s.lex.Delimiter)
		if len(parts) > 2 {
			parts = parts[:2]
		}
		head = strings.TrimSpace(strings.Join(parts, s.lex.Delimiter))
	}
	if head == "" || wordCount(head) > s.opts.MaxWords {
		head = strings.Join(strings.Fields(text)[:s.opts.MaxWords], " ")
	}
	return head + ellipsis, nil
}

func replaceAll(text string, rules []compiledRule) (string, error) {
	for _, r := range rules {
		replacement := r.replacement
		out, err := r.re.ReplaceFunc(text, func(regexp2.Match) string {
			return replacement
		}, -1, -1)
		if err != nil {
			return text, err
		}
		text = out
	}
	return text, nil
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func trimOneTerminator(text string) string {
	for _, t := range []string{".", "!", "?", "…"} {
		if strings.HasSuffix(text, t) {
			return strings.TrimSuffix(text, t)
		}
	}
	return text
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
