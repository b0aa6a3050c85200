// Package shaper rewrites a raw model completion into a short, in-character,
// Cyrillic-only reply.
//
// The rewrite is an ordered list of stages. Order matters: later stages
// assume the normalisation done by earlier ones, so the list is fixed at
// construction and never reordered.
package shaper

import (
	"fmt"
	"sync"
	"time"

	"zerotwo/pkg/lexicon"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// MatchTimeout bounds a single regex evaluation inside a stage.
const MatchTimeout = 200 * time.Millisecond

// Stage names, in pipeline order.
const (
	StageTruncate    = "truncate_at_delimiter"
	StageTerminology = "terminology"
	StageMixedScript = "mixed_script"
	StageLexicon     = "lexicon"
	StageLatinPurge  = "latin_purge"
	StageLeading     = "leading_noise"
	StageWhitespace  = "whitespace"
	StageAllowList   = "allow_list"
	StageSentences   = "sentence_cap"
	StagePadding     = "padding"
	StageFallback    = "fallback"
	StageEmoji       = "emoji"
	StageHardCap     = "hard_cap"
)

// Rand is the randomness the shaper draws filler and emoji from.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// ScriptClassifier tags whole tokens as foreign-script loanwords.
type ScriptClassifier interface {
	IsLatinScript(token string) bool
}

// Options are the numeric limits of the pipeline.
type Options struct {
	MaxSentences     int
	MinWords         int
	MaxWords         int
	EmojiProbability float64
}

func DefaultOptions() Options {
	return Options{
		MaxSentences:     2,
		MinWords:         5,
		MaxWords:         25,
		EmojiProbability: 0.4,
	}
}

// Stage is one text -> text step. A stage may fail; the shaper then keeps
// the stage's input.
type Stage struct {
	Name  string
	Apply func(string) (string, error)
}

// Result is the shaped text plus what happened to it, for logging.
type Result struct {
	Text       string
	Changed    []string
	Truncated  bool
	Padded     bool
	FellBack   bool
	EmojiAdded bool
}

type compiledRule struct {
	re          *regexp2.Regexp
	replacement string
}

type Shaper struct {
	lex        *lexicon.Lexicon
	opts       Options
	classifier ScriptClassifier
	logger     *zap.Logger

	randMu sync.Mutex
	rand   Rand

	terminology  []compiledRule
	replacements []compiledRule
	mixedScript  *regexp2.Regexp
	leadingNoise *regexp2.Regexp
	allowed      map[rune]struct{}

	stages []Stage
}

// New compiles the lexicon into a ready pipeline. classifier may be nil, in
// which case the Latin token purge is a no-op.
func New(lex *lexicon.Lexicon, opts Options, rnd Rand, classifier ScriptClassifier, logger *zap.Logger) (*Shaper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rnd == nil {
		return nil, fmt.Errorf("shaper: nil random source")
	}

	s := &Shaper{
		lex:        lex,
		opts:       opts,
		classifier: classifier,
		logger:     logger,
		rand:       rnd,
		allowed:    allowedRunes(lex),
	}

	var err error
	if s.terminology, err = compileRules(lex.TerminologyRules); err != nil {
		return nil, fmt.Errorf("compile terminology rules: %w", err)
	}
	if s.replacements, err = compileRules(lex.ReplaceRules); err != nil {
		return nil, fmt.Errorf("compile replace rules: %w", err)
	}
	if s.mixedScript, err = compile(`\b([а-яА-ЯёЁ]*)[a-zA-Z]+([а-яА-ЯёЁ]*)\b`, regexp2.None); err != nil {
		return nil, fmt.Errorf("compile mixed-script pattern: %w", err)
	}
	if s.leadingNoise, err = compile(`^[^а-яА-ЯёЁ]+`, regexp2.None); err != nil {
		return nil, fmt.Errorf("compile leading-noise pattern: %w", err)
	}

	s.stages = []Stage{
		{StageTruncate, s.truncateAtDelimiter},
		{StageTerminology, s.fixTerminology},
		{StageMixedScript, s.stripMixedScript},
		{StageLexicon, s.applyLexicon},
		{StageLatinPurge, s.purgeLatinTokens},
		{StageLeading, s.stripLeadingNoise},
		{StageWhitespace, normalizeWhitespace},
		{StageAllowList, s.enforceAllowList},
		{StageSentences, s.capSentences},
		{StagePadding, s.padShortReply},
		{StageFallback, s.fallback},
		{StageEmoji, s.injectEmoji},
		{StageHardCap, s.hardCap},
	}
	return s, nil
}

// Stages returns the pipeline in execution order.
func (s *Shaper) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// Shape runs every stage exactly once.
func (s *Shaper) Shape(raw string) Result {
	text := raw
	var res Result
	for _, st := range s.stages {
		out := s.run(st, text)
		if out != text {
			res.Changed = append(res.Changed, st.Name)
			switch st.Name {
			case StageHardCap:
				res.Truncated = true
			case StagePadding:
				res.Padded = true
			case StageFallback:
				res.FellBack = true
			case StageEmoji:
				res.EmojiAdded = true
			}
		}
		text = out
	}
	res.Text = text
	return res
}

func (s *Shaper) run(st Stage, in string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("shaper stage panicked", zap.String("stage", st.Name), zap.Any("panic", r))
			out = in
		}
	}()
	out, err := st.Apply(in)
	if err != nil {
		s.logger.Warn("shaper stage failed, keeping input", zap.String("stage", st.Name), zap.Error(err))
		return in
	}
	return out
}

func (s *Shaper) pick(pool []string) string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return pool[s.rand.Intn(len(pool))]
}

func (s *Shaper) chance(p float64) bool {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Float64() < p
}

func compile(pattern string, opts regexp2.RegexOptions) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

func compileRules(rules []lexicon.Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		pattern := r.Pattern
		if !r.Regex {
			pattern = `\b` + regexp2.Escape(r.Pattern) + `\b`
		}
		re, err := compile(pattern, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Pattern, err)
		}
		out = append(out, compiledRule{re: re, replacement: r.Replacement})
	}
	return out, nil
}

func allowedRunes(lex *lexicon.Lexicon) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, r := range lex.AllowedPunctuation {
		set[r] = struct{}{}
	}
	for _, e := range lex.AllowedEmojis {
		for _, r := range e {
			set[r] = struct{}{}
		}
	}
	for _, r := range lex.Delimiter {
		set[r] = struct{}{}
	}
	return set
}
