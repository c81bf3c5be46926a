package composer

import "erp-helpdesk-workers/internal/models"

type localized struct {
	en string
	ur string
}

func (l localized) For(lang models.Language) string {
	if lang == models.LanguageUrdu && l.ur != "" {
		return l.ur
	}
	return l.en
}

var clarificationText = localized{
	en: "I didn't catch a question there. Could you type what you need help with? For example: \"How do I create a sales invoice?\"",
	ur: "مجھے آپ کا سوال سمجھ نہیں آیا۔ براہ کرم بتائیں آپ کو کس چیز میں مدد چاہیے؟ مثال: \"Sales Invoice کیسے بنائیں؟\"",
}

var genericText = localized{
	en: "I'm here to help! Please ask your question in detail. You can ask me about any ERP module: Sales, Purchase, Inventory, HR, Accounting, Manufacturing, etc. How can I assist you today?",
	ur: "میں آپ کی مدد کے لیے حاضر ہوں! براہ کرم اپنا سوال تفصیل سے پوچھیں۔ آپ مجھ سے ERP کے کسی بھی module کے بارے میں پوچھ سکتے ہیں: Sales, Purchase, Inventory, HR, Accounting, Manufacturing, وغیرہ۔",
}

var contextTexts = map[string]localized{
	"Sales Invoice": {
		en: "I can help you with Sales Invoices. Common actions: Create new invoice, Check payment status, Print invoice, Submit invoice. What would you like to do?",
		ur: "میں Sales Invoices میں مدد کر سکتا ہوں۔ عام کام: نیا invoice بنانا، payment status چیک کرنا، invoice print کرنا۔ آپ کیا کرنا چاہتے ہیں؟",
	},
	"Purchase Order": {
		en: "I can help with Purchase Orders. You can: Create PO, Receive items, Check status, or Amend PO. What do you need?",
		ur: "میں Purchase Orders میں مدد کر سکتا ہوں۔ آپ کر سکتے ہیں: PO بنانا، items receive کرنا، status چیک کرنا۔ کیا چاہیے؟",
	},
	"Employee": {
		en: "I can help with Employee records. You can: View attendance, Check leave balance, Update details, or Create salary slip. What would you like to know?",
		ur: "میں Employee records میں مدد کر سکتا ہوں۔ آپ دیکھ سکتے ہیں: Attendance، Leave balance، Details update کرنا۔ کیا جاننا چاہتے ہیں؟",
	},
	"Stock Entry": {
		en: "I can help with Stock Entries. Common operations: Material Transfer, Receipt, Issue, Manufacture. What do you need help with?",
		ur: "میں Stock Entries میں مدد کر سکتا ہوں۔ عام operations: Material Transfer، Receipt، Issue، Manufacture۔ کیا مدد چاہیے؟",
	},
	"Customer": {
		en: "I can help manage Customer records. You can: View history, Check outstanding, Create quotation, or Update details. What would you like to do?",
		ur: "میں Customer records manage کرنے میں مدد کروں گا۔ آپ کر سکتے ہیں: History دیکھنا، Outstanding چیک کرنا، Quotation بنانا۔",
	},
}

var intentTexts = map[models.Intent]localized{
	models.IntentHowTo: {
		en: "To help you better, could you please specify which module or feature you need help with? For example: Sales, Purchase, HR, Inventory, etc.",
		ur: "آپ کی مدد کرنے کے لیے، براہ کرم بتائیں کہ آپ کو کس ماڈیول یا فیچر میں مدد چاہیے؟ مثال: Sales, Purchase, HR, Inventory",
	},
	models.IntentWhatIs: {
		en: "I can explain ERP concepts. Please specify what you'd like to know about.",
		ur: "میں ERP کے تصورات سمجھا سکتا ہوں۔ براہ کرم بتائیں آپ کیا جاننا چاہتے ہیں۔",
	},
	models.IntentCreate: {
		en: "I can guide you on creating documents. Which document type would you like to create?",
		ur: "میں آپ کو documents بنانے میں مدد کر سکتا ہوں۔ آپ کون سا document بنانا چاہتے ہیں؟",
	},
	models.IntentTroubleshoot: {
		en: "I'd be happy to help troubleshoot. Could you please describe the error or issue in more detail?",
		ur: "میں مسئلہ حل کرنے میں مدد کروں گا۔ براہ کرم error یا issue کی تفصیل بتائیں۔",
	},
	models.IntentFind: {
		en: "You can use the Awesome Bar (Ctrl+K) to search globally. What specifically are you looking for?",
		ur: "آپ Awesome Bar (Ctrl+K) استعمال کر کے تلاش کر سکتے ہیں۔ آپ کیا ڈھونڈ رہے ہیں؟",
	},
	models.IntentReport: {
		en: "There are many built-in reports. Which module's reports are you interested in?",
		ur: "سسٹم میں بہت سی رپورٹس ہیں۔ آپ کو کس ماڈیول کی رپورٹس چاہیے؟",
	},
	models.IntentSetup: {
		en: "I can help with setup. Which area would you like to configure?",
		ur: "میں setup میں مدد کر سکتا ہوں۔ آپ کیا configure کرنا چاہتے ہیں؟",
	},
}

// DefaultAnswer picks the canned text for a query nothing else could answer: by context
// doctype first, then by intent, then the generic greeting.
func DefaultAnswer(doctype string, intent models.Intent, lang models.Language) string {
	if t, ok := contextTexts[doctype]; ok {
		return t.For(lang)
	}
	if t, ok := intentTexts[intent]; ok {
		return t.For(lang)
	}
	return genericText.For(lang)
}

// ClarificationPrompt is the reply to an empty message.
func ClarificationPrompt(lang models.Language) string {
	return clarificationText.For(lang)
}
