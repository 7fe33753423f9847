package healthmode

import "strings"

var emergencyKeywords = []string{
	// English
	"emergency", "urgent", "help", "pain", "chest pain", "breathing problem",
	"accident", "injury", "bleeding", "unconscious", "heart attack", "stroke",
	"poisoning", "overdose", "severe", "critical", "dying", "can't breathe",
	// Hinglish
	"madad", "dard", "seene mein dard", "saans nahi aa rahi", "chot", "khoon",
	"behosh", "zeher", "bohot zyada", "mar raha", "saans nahi",
}

var symptomKeywords = []string{
	"symptom", "lakshan", "problem", "issue", "feeling", "dard", "pain",
	"fever", "bukhar", "cough", "khansi",
}

var mythFactKeywords = []string{
	"myth", "fact", "true", "false", "sach", "jhooth", "correct", "wrong", "believe",
}

var tipKeywords = []string{
	"tip", "advice", "suggestion", "recommend", "tips", "salah", "sujhav", "kaise", "how to",
}

// family is one keyword family of the classifier, checked in order
type family struct {
	mode     ID
	keywords []string
}

var families = []family{
	{mode: Emergency, keywords: emergencyKeywords},
	{mode: SymptomsChecker, keywords: symptomKeywords},
	{mode: MythFact, keywords: mythFactKeywords},
	{mode: HealthTips, keywords: tipKeywords},
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DetectEmergencyKeywords reports whether text contains any emergency keyword.
// Matching is a case-insensitive substring test.
func DetectEmergencyKeywords(text string) bool {
	return containsAny(text, emergencyKeywords)
}

// SuggestHealthMode classifies text by keyword family. The first matching
// family wins: emergency, symptoms, myth/fact, tips, then general.
func SuggestHealthMode(text string) ID {
	for _, f := range families {
		if containsAny(text, f.keywords) {
			return f.mode
		}
	}
	return General
}

// Resolve picks the mode that governs a response to latestText.
// Emergency keywords override any requested mode; a general request is
// refined through SuggestHealthMode; unknown ids fall back to the default.
func Resolve(requested ID, latestText string) ID {
	if DetectEmergencyKeywords(latestText) {
		return Emergency
	}
	if !IsValid(requested) {
		requested = Default
	}
	if requested == General {
		return SuggestHealthMode(latestText)
	}
	return requested
}
