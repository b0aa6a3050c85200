package moderation

import (
	"testing"

	"zerotwo/pkg/lexicon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafetyClassifier_IsUnsafe(t *testing.T) {
	c, err := NewSafetyClassifier(lexicon.Default(), nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"clean text", "Привет, как дела у Стрелиции?", false},
		{"sexual term", "давай поговорим про секс", true},
		{"upper case", "ПОРНО", true},
		{"mixed case inside sentence", "Это Эротика, не так ли?", true},
		{"hate speech", "он нацист", true},
		{"slur", "какой-то черномазый", true},
		{"word boundary: no partial match", "херувим летит", false},
		{"word boundary: suffix not matched", "сексуальный", false},
		{"empty", "", false},
		{"punctuation around term", "...секс!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsUnsafe(tt.text))
		})
	}
}

func TestSafetyClassifier_Category(t *testing.T) {
	c, err := NewSafetyClassifier(lexicon.Default(), nil)
	require.NoError(t, err)

	assert.Equal(t, "sexual", c.Category("грудь"))
	assert.Equal(t, "ethnic_slur", c.Category("негр"))
	assert.Equal(t, "hate_speech", c.Category("фашист"))
	assert.Empty(t, c.Category("рёвозавр"))
}

func TestSafetyClassifier_SubstituteRules(t *testing.T) {
	lex := &lexicon.Lexicon{
		SafetyCategories: []lexicon.SafetyCategory{{Name: "test", Pattern: `\bfoo\b`}},
	}
	c, err := NewSafetyClassifier(lex, nil)
	require.NoError(t, err)

	assert.True(t, c.IsUnsafe("a FOO b"))
	assert.False(t, c.IsUnsafe("секс"))
}

func TestNewSafetyClassifier_InvalidPattern(t *testing.T) {
	lex := &lexicon.Lexicon{
		SafetyCategories: []lexicon.SafetyCategory{{Name: "broken", Pattern: `(unclosed`}},
	}
	_, err := NewSafetyClassifier(lex, nil)
	assert.Error(t, err)
}
