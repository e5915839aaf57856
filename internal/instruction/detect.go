package instruction

import "regexp"

// Prompt-sniffing classifiers. A user may describe a database, storage
// or auth need in prose without supplying structured supportingProps,
// so a curated keyword lexicon doubles as the trigger. Detection is a
// confidence-free categorical tag; misclassification is an accepted
// product limitation, not a bug.

var (
	// databaseLexicon covers the two supported backend providers'
	// operations plus CRUD, auth and storage verbs.
	databaseLexicon = regexp.MustCompile(`(?i)\b(firebase|firestore|supabase|realtime database|collection|document|` +
		`insert|update|delete|fetch|select|query|upsert|crud|` +
		`sign\s?up|sign\s?in|sign\s?out|login|logout|register|authenticate|auth|` +
		`storage|upload|download|bucket)\b`)

	domRe      = regexp.MustCompile(`(?i)\b(dom|createelement|create element|append|appendchild|remove element|removechild|toggle|classlist|innerhtml|textcontent|style)\b`)
	crudRe     = regexp.MustCompile(`(?i)\b(insert|update|delete|fetch|select|query|upsert|crud)\b`)
	storageRe  = regexp.MustCompile(`(?i)\b(storage|upload|download|bucket)\b`)
	authRe     = regexp.MustCompile(`(?i)\b(sign\s?up|sign\s?in|sign\s?out|login|logout|register|authenticate|auth)\b`)
	firebaseRe = regexp.MustCompile(`(?i)\bfire(base|store)\b`)
	supabaseRe = regexp.MustCompile(`(?i)\bsupabase\b`)
)

// MentionsDatabase reports whether the free-text prompt matches the
// database vocabulary lexicon.
func MentionsDatabase(prompt string) bool {
	return databaseLexicon.MatchString(prompt)
}

// detector tests the prompt for one topic and, on match, contributes a
// synthetic key that may resolve to an example fragment.
type detector struct {
	name  string
	match func(prompt string) []string
}

func provider(prompt string) string {
	switch {
	case firebaseRe.MatchString(prompt):
		return "firebase"
	case supabaseRe.MatchString(prompt):
		return "supabase"
	}
	return ""
}

// detectors run in fixed order so re-running the same request extends
// the key set identically.
var detectors = []detector{
	{
		name: "dom-manipulation",
		match: func(prompt string) []string {
			if domRe.MatchString(prompt) {
				return []string{"common_dom"}
			}
			return nil
		},
	},
	{
		name: "crud",
		match: func(prompt string) []string {
			if p := provider(prompt); p != "" && crudRe.MatchString(prompt) {
				return []string{"common_crud." + p}
			}
			return nil
		},
	},
	{
		name: "storage",
		match: func(prompt string) []string {
			if p := provider(prompt); p != "" && storageRe.MatchString(prompt) {
				return []string{"common_storage." + p}
			}
			return nil
		},
	},
	{
		name: "auth",
		match: func(prompt string) []string {
			if p := provider(prompt); p != "" && authRe.MatchString(prompt) {
				return []string{"common_auth." + p}
			}
			return nil
		},
	},
}

// DetectExampleKeys returns the synthetic example keys selected by the
// prompt, in detector order.
func DetectExampleKeys(prompt string) []string {
	var keys []string
	for _, d := range detectors {
		keys = append(keys, d.match(prompt)...)
	}
	return keys
}
