package language

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"erp-helpdesk-workers/internal/models"
)

func TestDetect(t *testing.T) {
	d := NewDetector(DefaultUrduDensity)

	tests := []struct {
		name     string
		text     string
		pref     models.LanguagePreference
		expected models.Language
	}{
		{"empty", "", models.PreferenceAuto, models.LanguageUnknown},
		{"whitespace", "   \t", models.PreferenceEnglish, models.LanguageUnknown},
		{"business english", "How do I create a Sales Invoice?", models.PreferenceAuto, models.LanguageEnglish},
		{"urdu script", "سیلز انوائس کیسے بنائیں؟", models.PreferenceAuto, models.LanguageUrdu},
		{"urdu script beats english preference", "سیلز انوائس کیسے بنائیں", models.PreferenceEnglish, models.LanguageUrdu},
		{"mixed mostly urdu", "Sales Invoice کیسے بنائیں اور جمع کریں", models.PreferenceAuto, models.LanguageUrdu},
		{"single arabic letter under threshold", "Where is the stock report for item ک", models.PreferenceAuto, models.LanguageEnglish},
		{"roman urdu with urdu preference", "invoice kaise banate hain", models.PreferenceUrdu, models.LanguageUrdu},
		{"roman urdu auto", "invoice kaise banate hain", models.PreferenceAuto, models.LanguageEnglish},
		{"digits only", "12345 678", models.PreferenceAuto, models.LanguageUnknown},
		{"digits with english preference", "12345", models.PreferenceEnglish, models.LanguageEnglish},
		{"cyrillic", "как создать счет", models.PreferenceAuto, models.LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.Detect(tt.text, tt.pref))
		})
	}
}

func TestDetect_ThresholdIsConfigurable(t *testing.T) {
	text := "please help with انوائس" // 6 of 20 letters are Urdu

	assert.Equal(t, models.LanguageUrdu, NewDetector(0.2).Detect(text, models.PreferenceAuto))
	assert.Equal(t, models.LanguageEnglish, NewDetector(0.5).Detect(text, models.PreferenceAuto))
}

func TestNewDetector_InvalidThresholdUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultUrduDensity, NewDetector(0).threshold)
	assert.Equal(t, DefaultUrduDensity, NewDetector(3).threshold)
}

func TestCount(t *testing.T) {
	c := Count("Stock انوائس 42!")
	assert.Equal(t, 5, c.Latin)
	assert.Equal(t, 6, c.Urdu)
	assert.Equal(t, 0, c.Other)
}
