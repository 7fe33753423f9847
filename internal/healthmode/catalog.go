package healthmode

import "github.com/vcscsvcscs/swasth-ai/backend/pkg/model"

// ID identifies a health mode
type ID string

const (
	SymptomsChecker      ID = "symptoms_checker"
	ProactiveSuggestions ID = "proactive_suggestions"
	HealthTips           ID = "health_tips"
	MythFact             ID = "myth_fact"
	Emergency            ID = "emergency"
	Personalized         ID = "personalized"
	General              ID = "general"
)

// Default is the mode used when nothing else was selected
const Default = General

// Severity tags how urgent the guidance of a mode is
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Mode is one entry of the health mode catalog
type Mode struct {
	ID               ID       `json:"id"`
	Name             string   `json:"name"`
	NameHindi        string   `json:"name_hindi"`
	Description      string   `json:"description"`
	DescriptionHindi string   `json:"description_hindi"`
	Icon             string   `json:"icon"`
	Severity         Severity `json:"severity,omitempty"`
	Prompt           string   `json:"-"`
	PromptHindi      string   `json:"-"`
	Welcome          string   `json:"-"`
	WelcomeHindi     string   `json:"-"`
}

// PromptFor returns the system prompt in the given language
func (m Mode) PromptFor(lang model.Language) string {
	if lang == model.LanguageHindi {
		return m.PromptHindi
	}
	return m.Prompt
}

// WelcomeFor returns the welcome message in the given language
func (m Mode) WelcomeFor(lang model.Language) string {
	if lang == model.LanguageHindi {
		return m.WelcomeHindi
	}
	return m.Welcome
}

const baseIdentity = "You are Swasth AI, a caring health assistant for users in India. " +
	"You are not a doctor and you never give a final diagnosis. " +
	"Always recommend seeing a qualified doctor for anything serious. "

const baseIdentityHindi = "Aap Swasth AI hain, ek caring health assistant. " +
	"Aap doctor nahi hain aur final diagnosis nahi dete. " +
	"Serious baat ho to hamesha qualified doctor se milne ki salah dein. Hinglish mein jawab dein. "

// order is the display order of the catalog
var order = []ID{
	SymptomsChecker,
	ProactiveSuggestions,
	HealthTips,
	MythFact,
	Emergency,
	Personalized,
	General,
}

var catalog = map[ID]Mode{
	SymptomsChecker: {
		ID:               SymptomsChecker,
		Name:             "Symptoms Checker",
		NameHindi:        "Lakshan Jaanch",
		Description:      "Check your symptoms and get preliminary health insights",
		DescriptionHindi: "Apne lakshan check karein aur health insights paayein",
		Icon:             "🔍",
		Prompt: baseIdentity + "Ask short follow-up questions about duration, severity and related symptoms, " +
			"list possible common causes, give safe home-care steps and clearly say when to see a doctor.",
		PromptHindi: baseIdentityHindi + "Lakshan kab se hain, kitne tez hain aur saath mein kya ho raha hai, yeh poochein. " +
			"Aam kaaran batayein, ghar par safe upay dein aur saaf batayein kab doctor ke paas jaana hai.",
		Welcome:      "Tell me what symptoms you are experiencing and for how long. I'll help you understand them.",
		WelcomeHindi: "Mujhe batayein aapko kya lakshan ho rahe hain aur kab se. Main samajhne mein madad karunga.",
	},
	ProactiveSuggestions: {
		ID:               ProactiveSuggestions,
		Name:             "Proactive Health Tips",
		NameHindi:        "Swasthya Sujhaav",
		Description:      "Get personalized health suggestions and preventive care tips",
		DescriptionHindi: "Vyaktigat swasthya sujhaav aur bachav ke tips paayein",
		Icon:             "💡",
		Prompt: baseIdentity + "Focus on prevention: screenings by age, vaccination reminders, " +
			"seasonal precautions and small daily habits that lower long-term risk.",
		PromptHindi: baseIdentityHindi + "Bachav par dhyan dein: umar ke hisaab se checkup, vaccine reminders, " +
			"mausam ke hisaab se savdhani aur rozana ki chhoti aadatein.",
		Welcome:      "Let's plan ahead for your health. Ask me about checkups, prevention or healthy habits.",
		WelcomeHindi: "Chaliye aapki health ke liye aage ki planning karein. Checkup, bachav ya achhi aadaton ke baare mein poochein.",
	},
	HealthTips: {
		ID:               HealthTips,
		Name:             "Daily Health Tips",
		NameHindi:        "Rojana Swasthya Tips",
		Description:      "Get daily health tips and wellness advice",
		DescriptionHindi: "Rojana swasthya tips aur wellness advice paayein",
		Icon:             "🌟",
		Prompt: baseIdentity + "Give practical, easy to follow wellness tips on diet, water, sleep, " +
			"exercise and stress, suited to Indian lifestyle and food.",
		PromptHindi: baseIdentityHindi + "Khana, paani, neend, exercise aur stress par aasaan aur practical tips dein, " +
			"Indian lifestyle aur khane ke hisaab se.",
		Welcome:      "Ready for today's health tip? Ask me anything about diet, sleep, fitness or stress.",
		WelcomeHindi: "Aaj ki health tip ke liye taiyaar? Khana, neend, fitness ya stress ke baare mein kuch bhi poochein.",
	},
	MythFact: {
		ID:               MythFact,
		Name:             "Myth or Fact",
		NameHindi:        "Myth ya Fact",
		Description:      "Verify health myths and get evidence-based facts",
		DescriptionHindi: "Health myths verify karein aur evidence-based facts paayein",
		Icon:             "🤔",
		Prompt: baseIdentity + "Start with a clear verdict (Myth, Fact or Partly true), explain the evidence in simple words " +
			"and correct common misconceptions respectfully.",
		PromptHindi: baseIdentityHindi + "Pehle saaf verdict dein (Myth, Fact ya Aadha sach), phir saral shabdon mein evidence samjhayein " +
			"aur galat dhaarnaon ko izzat se sudhaarein.",
		Welcome:      "Heard a health claim you're unsure about? Tell me and I'll check whether it's a myth or a fact.",
		WelcomeHindi: "Koi health baat suni jis par shak hai? Batayein, main check karunga ki woh myth hai ya fact.",
	},
	Emergency: {
		ID:               Emergency,
		Name:             "Emergency Help",
		NameHindi:        "Emergency Madad",
		Description:      "Get immediate guidance for health emergencies",
		DescriptionHindi: "Health emergency ke liye turant guidance paayein",
		Icon:             "🚨",
		Severity:         SeverityCritical,
		Prompt: baseIdentity + "This may be an emergency. First tell the user to call 112 or 108 immediately. " +
			"Then give short, numbered first-aid steps and the warning signs to watch until help arrives.",
		PromptHindi: baseIdentityHindi + "Yeh emergency ho sakti hai. Sabse pehle turant 112 ya 108 call karne ko kahein. " +
			"Phir chhote numbered first-aid steps aur madad aane tak dhyan rakhne wale signs batayein.",
		Welcome:      "If this is an emergency, call 112 or 108 now. Tell me what is happening and I'll guide you.",
		WelcomeHindi: "Agar emergency hai to abhi 112 ya 108 call karein. Batayein kya ho raha hai, main guide karunga.",
	},
	Personalized: {
		ID:               Personalized,
		Name:             "Personal Health",
		NameHindi:        "Vyaktigat Swasthya",
		Description:      "Get personalized health advice based on your profile",
		DescriptionHindi: "Apne profile ke basis par vyaktigat swasthya salah paayein",
		Icon:             "👤",
		Prompt: baseIdentity + "Use the user's health profile, medications, allergies and active suggestions " +
			"to tailor every answer. Mention conflicts with known conditions or allergies.",
		PromptHindi: baseIdentityHindi + "User ke health profile, dawaiyon, allergies aur active sujhaavon ka use karke " +
			"har jawab personalize karein. Conditions ya allergies se takraav ho to zaroor batayein.",
		Welcome:      "I'll use your health profile to personalize my advice. What would you like to know?",
		WelcomeHindi: "Main aapke health profile ke hisaab se salah dunga. Aap kya jaanna chahte hain?",
	},
	General: {
		ID:               General,
		Name:             "General Health Chat",
		NameHindi:        "General Health Baat",
		Description:      "General health questions and conversations",
		DescriptionHindi: "General health questions aur conversations",
		Icon:             "💬",
		Prompt:           baseIdentity + "Answer general health questions clearly and kindly.",
		PromptHindi:      baseIdentityHindi + "General health sawalon ka saaf aur pyaar se jawab dein.",
		Welcome:          "Hi, I'm Swasth AI. Ask me any health question.",
		WelcomeHindi:     "Namaste! Main Swasth AI hoon. Koi bhi health sawal poochein.",
	},
}

// Get returns the mode for id, falling back to the default mode
func Get(id ID) Mode {
	if m, ok := catalog[id]; ok {
		return m
	}
	return catalog[Default]
}

// IsValid reports whether id is part of the catalog
func IsValid(id ID) bool {
	_, ok := catalog[id]
	return ok
}

// All returns the catalog in display order
func All() []Mode {
	modes := make([]Mode, 0, len(order))
	for _, id := range order {
		modes = append(modes, catalog[id])
	}
	return modes
}
