package intent

import "erp-helpdesk-workers/internal/models"

// DefaultEnglishRules covers English and roman-Urdu phrasing.
func DefaultEnglishRules() []Rule {
	return []Rule{
		{Intent: models.IntentHowTo, Keywords: []string{"how to", "how do i", "how can i", "how do we", "steps to", "kaise", "kaisay", "kis tarah"}},
		{Intent: models.IntentWhatIs, Keywords: []string{"what is", "what are", "whats", "define", "meaning of", "kya hai", "kia hai", "kya hota"}},
		{Intent: models.IntentCreate, Keywords: []string{"create", "new", "add", "make a", "banao", "banana", "banayen"}},
		{Intent: models.IntentTroubleshoot, Keywords: []string{"error", "issue", "problem", "not working", "failed", "fails", "cant", "cannot", "masla", "kharabi", "ghalti"}},
		{Intent: models.IntentStatusQuery, Keywords: []string{"pending", "overdue", "low stock", "alerts", "alert", "reminders", "expiring", "due today", "what needs", "baqaya"}},
		{Intent: models.IntentStatusQuery, Mode: All, Keywords: []string{"status", "my"}},
		{Intent: models.IntentFind, Keywords: []string{"find", "search", "where", "locate", "kahan", "dhundo"}},
		{Intent: models.IntentReport, Keywords: []string{"report", "list", "show me", "summary", "dikhao"}},
		{Intent: models.IntentSetup, Keywords: []string{"setup", "set up", "configure", "settings", "setting", "configuration"}},
		{Intent: models.IntentFeedback, Keywords: []string{"thanks", "thank you", "not helpful", "wrong answer", "shukriya"}},
		{Intent: models.IntentGreeting, Keywords: []string{"hello", "hi", "hey", "good morning", "good evening", "salam", "assalam", "aoa"}},
	}
}

// DefaultUrduRules covers Urdu script.
func DefaultUrduRules() []Rule {
	return []Rule{
		{Intent: models.IntentHowTo, Keywords: []string{"کیسے", "کس طرح", "طریقہ"}},
		{Intent: models.IntentWhatIs, Keywords: []string{"کیا ہے", "کیا ہیں", "کسے کہتے"}},
		{Intent: models.IntentCreate, Keywords: []string{"بنائیں", "بنانا", "نیا", "شامل کریں"}},
		{Intent: models.IntentTroubleshoot, Keywords: []string{"مسئلہ", "خرابی", "غلطی", "کام نہیں"}},
		{Intent: models.IntentStatusQuery, Keywords: []string{"زیر التوا", "واجب الادا", "الرٹ", "کم اسٹاک"}},
		{Intent: models.IntentFind, Keywords: []string{"کہاں", "تلاش", "ڈھونڈیں"}},
		{Intent: models.IntentReport, Keywords: []string{"رپورٹ", "فہرست", "دکھائیں"}},
		{Intent: models.IntentSetup, Keywords: []string{"ترتیب", "سیٹنگ", "سیٹ اپ"}},
		{Intent: models.IntentFeedback, Keywords: []string{"شکریہ", "مہربانی"}},
		{Intent: models.IntentGreeting, Keywords: []string{"السلام علیکم", "سلام", "آداب"}},
	}
}
