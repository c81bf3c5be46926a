// internal/models/language.go
package models

import "strings"

// Language is the language of an utterance or an article.
type Language string

const (
	LanguageEnglish   Language = "English"
	LanguageUrdu      Language = "Urdu"
	LanguageUnknown   Language = "Unknown"
	LanguageBilingual Language = "Bilingual" // articles only
)

// LanguagePreference is what the user asked for in the chat widget.
type LanguagePreference string

const (
	PreferenceAuto    LanguagePreference = "Auto"
	PreferenceEnglish LanguagePreference = "English"
	PreferenceUrdu    LanguagePreference = "Urdu"
)

// ParseLanguagePreference accepts the widget's labels case-insensitively. Anything it
// does not recognise, including "Auto Detect" and the empty string, is Auto.
func ParseLanguagePreference(s string) LanguagePreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "en":
		return PreferenceEnglish
	case "urdu", "ur":
		return PreferenceUrdu
	default:
		return PreferenceAuto
	}
}

// Language returns the explicit language of the preference, or Unknown for Auto.
func (p LanguagePreference) Language() Language {
	switch p {
	case PreferenceEnglish:
		return LanguageEnglish
	case PreferenceUrdu:
		return LanguageUrdu
	default:
		return LanguageUnknown
	}
}

// ParseLanguage maps stored article/session values onto a Language.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "en":
		return LanguageEnglish
	case "urdu", "ur":
		return LanguageUrdu
	case "bilingual", "both":
		return LanguageBilingual
	default:
		return LanguageUnknown
	}
}

// Intent is the coarse purpose of an utterance.
type Intent string

const (
	IntentHowTo        Intent = "HowTo"
	IntentWhatIs       Intent = "WhatIs"
	IntentCreate       Intent = "Create"
	IntentTroubleshoot Intent = "Troubleshoot"
	IntentFind         Intent = "Find"
	IntentReport       Intent = "Report"
	IntentSetup        Intent = "Setup"
	IntentStatusQuery  Intent = "StatusQuery"
	IntentGreeting     Intent = "Greeting"
	IntentFeedback     Intent = "Feedback"
	IntentUnknown      Intent = "Unknown"
)

// Source records which path produced an answer.
type Source string

const (
	SourceKnowledgeBase      Source = "KnowledgeBase"
	SourceRule               Source = "Rule"
	SourceGenerativeFallback Source = "GenerativeFallback"
	SourceDefault            Source = "Default"
)

// Utterance is one user message with its page context.
type Utterance struct {
	Message            string             `json:"message"`
	LanguagePreference LanguagePreference `json:"languagePreference,omitempty"`
	ContextDoctype     string             `json:"contextDoctype,omitempty"`
	ContextDocname     string             `json:"contextDocname,omitempty"`
}
