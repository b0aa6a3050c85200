// Package morph tags tokens by script so the shaper can purge foreign
// loanwords the regex pass missed.
package morph

import "unicode"

// ScriptClassifier tags a token as Latin-script when it has at least one
// letter and every letter in it is Latin. Digits and punctuation are
// ignored, so "hello," and "x-ray" are Latin while "teбя" is not.
type ScriptClassifier struct{}

func NewScriptClassifier() *ScriptClassifier {
	return &ScriptClassifier{}
}

func (ScriptClassifier) IsLatinScript(token string) bool {
	letters := 0
	for _, r := range token {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.Is(unicode.Latin, r) {
			return false
		}
		letters++
	}
	return letters > 0
}
