package specialty

import "strings"

type keyword struct {
	key        string
	specialite string
}

// keywords is scanned in order and the first hit wins, so compound or more
// specific stems must come before the generic ones they contain
// ("neurochirurg" before "neuro", everything before "chirurg").
var keywords = []keyword{
	{"neurochirurg", "Neurochirurgie"},
	{"cardiolog", "Cardiologie"},
	{"cardiaque", "Cardiologie"},
	{"cœur", "Cardiologie"},
	{"coeur", "Cardiologie"},
	{"dermatolog", "Dermatologie"},
	{"peau", "Dermatologie"},
	{"pédiatr", "Pédiatrie"},
	{"pediatr", "Pédiatrie"},
	{"gynécolog", "Gynécologie"},
	{"gynecolog", "Gynécologie"},
	{"obstétri", "Gynécologie"},
	{"ophtalmolog", "Ophtalmologie"},
	{"yeux", "Ophtalmologie"},
	{"neurolog", "Neurologie"},
	{"psychiatr", "Psychiatrie"},
	{"psycholog", "Psychologie"},
	{"oto-rhino", "ORL"},
	{"otorhinolaryngolog", "ORL"},
	{"gastro", "Gastro-entérologie"},
	{"digesti", "Gastro-entérologie"},
	{"pneumolog", "Pneumologie"},
	{"poumon", "Pneumologie"},
	{"rhumatolog", "Rhumatologie"},
	{"orthopéd", "Orthopédie"},
	{"orthoped", "Orthopédie"},
	{"urolog", "Urologie"},
	{"néphrolog", "Néphrologie"},
	{"nephrolog", "Néphrologie"},
	{"endocrinolog", "Endocrinologie"},
	{"diabét", "Endocrinologie"},
	{"oncolog", "Oncologie"},
	{"cancérolog", "Oncologie"},
	{"allergolog", "Allergologie"},
	{"dentaire", "Dentisterie"},
	{"dentist", "Dentisterie"},
	{"radiolog", "Radiologie"},
	{"généraliste", "Médecine générale"},
	{"generaliste", "Médecine générale"},
	{"médecine générale", "Médecine générale"},
	{"neuro", "Neurologie"},
	{"chirurg", "Chirurgie générale"},
	{"orl", "ORL"},
}

// Classify maps a free-text guess to a canonical specialty. Matching is a
// case-insensitive substring test. When nothing matches the trimmed input is
// returned as is and matched is false.
func Classify(text string) (specialite string, matched bool) {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k.key) {
			return k.specialite, true
		}
	}
	return strings.TrimSpace(text), false
}

// Specialites lists the canonical specialties known to the classifier,
// in first-seen order.
func Specialites() []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if !seen[k.specialite] {
			seen[k.specialite] = true
			out = append(out, k.specialite)
		}
	}
	return out
}
