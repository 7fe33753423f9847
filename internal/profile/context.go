package profile

import (
	"fmt"
	"strings"

	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

const (
	notSpecified       = "Not specified"
	recentlyCompletedN = 3
	contextDateLayout  = "02 Jan 2006"
)

// FormatContext renders a snapshot as a system prompt appendix
func FormatContext(snap *Snapshot) string {
	p := snap.Profile
	var b strings.Builder

	b.WriteString("\n\n=== USER HEALTH PROFILE ===\n\n")

	b.WriteString("PERSONAL INFORMATION:\n")
	fmt.Fprintf(&b, "- Age: %s\n", intOr(p.Age))
	fmt.Fprintf(&b, "- Gender: %s\n", stringOr(p.Gender))
	fmt.Fprintf(&b, "- Height: %s\n", unitOr(p.HeightCM, "cm"))
	fmt.Fprintf(&b, "- Weight: %s\n", unitOr(p.WeightKG, "kg"))
	fmt.Fprintf(&b, "- Blood Group: %s\n", stringOr(p.BloodGroup))

	b.WriteString("\nMEDICAL INFORMATION:\n")
	fmt.Fprintf(&b, "- Medical Conditions: %s\n", listOr(p.MedicalConditions))
	fmt.Fprintf(&b, "- Allergies: %s\n", listOr(p.Allergies))
	fmt.Fprintf(&b, "- Current Medications: %s\n", listOr(p.Medications))

	b.WriteString("\nLIFESTYLE PREFERENCES:\n")
	fmt.Fprintf(&b, "- Diet Type: %s\n", stringOr(p.Preferences.DietType))
	fmt.Fprintf(&b, "- Exercise Level: %s\n", stringOr(p.Preferences.ExerciseLevel))
	fmt.Fprintf(&b, "- Sleep Hours: %s\n", unitOr(p.Preferences.SleepHours, "h"))
	fmt.Fprintf(&b, "- Stress Level: %s\n", stringOr(p.Preferences.StressLevel))

	b.WriteString("\nEMERGENCY CONTACTS:\n")
	if len(snap.Contacts) == 0 {
		b.WriteString("No emergency contacts specified\n")
	}
	for _, c := range snap.Contacts {
		primary := ""
		if c.IsPrimary {
			primary = " [PRIMARY]"
		}
		fmt.Fprintf(&b, "- %s (%s): %s%s\n", c.Name, c.Relation, c.Phone, primary)
	}

	var active, completed []model.HealthSuggestion
	for _, s := range snap.Suggestions {
		if s.Completed {
			completed = append(completed, s)
		} else {
			active = append(active, s)
		}
	}

	b.WriteString("\nACTIVE HEALTH SUGGESTIONS:\n")
	if len(active) == 0 {
		b.WriteString("No active health suggestions\n")
	}
	for _, s := range active {
		due := ""
		if s.DueDate != nil {
			due = " - Due: " + s.DueDate.Format(contextDateLayout)
		}
		fmt.Fprintf(&b, "- %s (%s, Priority: %s)%s\n", s.Title, s.Type, s.Priority, due)
	}

	b.WriteString("\nRECENTLY COMPLETED SUGGESTIONS:\n")
	if len(completed) == 0 {
		b.WriteString("No recently completed suggestions\n")
	}
	if len(completed) > recentlyCompletedN {
		completed = completed[:recentlyCompletedN]
	}
	for _, s := range completed {
		done := ""
		if s.CompletedAt != nil {
			done = " (Completed: " + s.CompletedAt.Format(contextDateLayout) + ")"
		}
		fmt.Fprintf(&b, "- %s%s\n", s.Title, done)
	}

	b.WriteString("\nUse this information to personalize the answer. Point out conflicts with the listed conditions, allergies or medications.")
	return b.String()
}

func stringOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func intOr(v *int) string {
	if v == nil {
		return notSpecified
	}
	return fmt.Sprint(*v)
}

func unitOr(v *float64, unit string) string {
	if v == nil {
		return notSpecified
	}
	return fmt.Sprintf("%g %s", *v, unit)
}

func listOr(items []string) string {
	if len(items) == 0 {
		return "None specified"
	}
	return strings.Join(items, ", ")
}
