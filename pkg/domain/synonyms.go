package domain

import (
	"strings"
	"unicode"
)

// Intent is a canonical branching intent detected in free text or carried by
// an edge label.
type Intent string

const (
	IntentReady      Intent = "ready"
	IntentInstructor Intent = "instructor"
	IntentYes        Intent = "yes"
	IntentNo         Intent = "no"
)

// IntentPriority is the order in which intents are scanned when resolving a
// branch from free text. Ready wins over instructor, instructor over yes/no.
var IntentPriority = []Intent{IntentReady, IntentInstructor, IntentYes, IntentNo}

// SynonymTable maps a canonical intent to the words that express it.
// Tables are plain data so alternative locales can be loaded without
// touching control flow.
type SynonymTable map[Intent][]string

// DefaultSynonyms returns the built-in Turkish/English table.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		IntentReady:      {"ready", "hazır", "hazir", "başla", "basla", "start"},
		IntentInstructor: {"instructor", "eğitmen", "egitmen", "teacher", "hoca"},
		IntentYes:        {"yes", "evet", "tamam", "olur", "ok", "okay"},
		IntentNo:         {"no", "hayır", "hayir", "istemiyorum"},
	}
}

// IntentOf returns the intent whose synonym group contains the given word.
func (t SynonymTable) IntentOf(word string) (Intent, bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	for intent, words := range t {
		for _, s := range words {
			if w == strings.ToLower(s) {
				return intent, true
			}
		}
	}
	return "", false
}

// TextHasIntent reports whether any synonym of intent appears as a word in
// the given text. Matching is case-insensitive.
func (t SynonymTable) TextHasIntent(text string, intent Intent) bool {
	lower := strings.ToLower(text)
	for _, s := range t[intent] {
		if containsWord(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// DetectIntent scans the text for intents in IntentPriority order and
// returns the first one found.
func (t SynonymTable) DetectIntent(text string) (Intent, bool) {
	for _, intent := range IntentPriority {
		if t.TextHasIntent(text, intent) {
			return intent, true
		}
	}
	return "", false
}

// containsWord reports whether word occurs as a whole word in text.
// Both arguments must already be lowercased.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, f := range fields {
		if f == word {
			return true
		}
	}
	return false
}
