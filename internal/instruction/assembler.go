package instruction

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/request"
)

// Assembler compiles the instruction document sent to the model: it
// loads each named fragment, substitutes placeholders, includes the
// element- and keyword-conditional sections, selects example snippets
// against the prompt, and normalizes the concatenation. Assembly never
// fails; a missing fragment is logged and skipped, and identical
// normalized input always produces a byte-identical document.
type Assembler struct {
	store     *Store
	log       *zap.Logger
	debugPath string
}

// NewAssembler creates an assembler over the fragment store. When
// debugPath is non-empty the assembled document is also persisted
// there (overwritten every request) for inspection.
func NewAssembler(store *Store, debugPath string, log *zap.Logger) *Assembler {
	return &Assembler{store: store, log: log, debugPath: debugPath}
}

// Key paths whose presence anywhere in the request toggles optional
// sections.
const (
	keySupportingProps = "supportingProps"
	keyDatabase        = "supportingProps.database"
	keyMutation        = "mutation"
)

// Assemble produces the final instruction document for one request.
func (a *Assembler) Assemble(target request.Element, keys []string, prompt string) string {
	var sections []string
	push := func(text string) {
		sections = append(sections, text)
	}

	elementType := strings.ToUpper(string(target))
	useDatabase := request.HasKey(keys, keyDatabase) || MentionsDatabase(prompt)

	// General instructions; the form target additionally designs
	// structure, fields and styling.
	if text, ok := a.store.Load(FragmentGeneral); ok {
		text = replacePlaceholders(text, map[string]string{
			"ELEMENT_TYPE": elementType,
		})
		if target == request.ElementForm {
			text += formSpecific()
		}
		push(text)
	}

	// Expected input shape.
	if text, ok := a.store.Load(FragmentExpectedInput); ok {
		push(replacePlaceholders(text, map[string]string{
			"ELEMENT_TYPE":                   elementType,
			"ELEMENT_SPECIFIC_REQUIRED_KEYS": requiredKeyAdditions(target),
			"ELEMENT_SPECIFIC_OPTIONAL_KEYS": optionalKeyAdditions(target),
		}))
	}

	// Processing steps, with keyword-conditional clauses.
	if text, ok := a.store.Load(FragmentProcessing); ok {
		repl := map[string]string{
			"ELEMENT_TYPE": elementType,
		}
		if target == request.ElementInput {
			repl["INPUT_VALIDATION_ADDITIONS"] = "**Ensure the `type` key is present and valid (e.g. `\"text\"`, `\"password\"`, `\"email\"`).**"
		} else {
			repl["INPUT_VALIDATION_ADDITIONS"] = ""
		}
		if target == request.ElementForm {
			repl["CODE_GENERATION_ADDITIONS"] = "**Always call the `event.preventDefault()` method to disable the form default behaviour.**"
			repl["FORM_BUILDER_PLACEHOLDER"] = "`formBuilder`, "
		} else {
			repl["CODE_GENERATION_ADDITIONS"] = ""
			repl["FORM_BUILDER_PLACEHOLDER"] = ""
		}
		if useDatabase {
			repl["DATABASE_KEYWORD_PROCESSING"] = "Identify keywords indicating database operations (e.g. fetch, insert, update, delete)."
			repl["DATABASE_CONFIGURATION"] = databaseConfigSteps()
		} else {
			repl["DATABASE_KEYWORD_PROCESSING"] = ""
			repl["DATABASE_CONFIGURATION"] = ""
		}
		if request.HasKey(keys, keyMutation) {
			repl["MUTATION_HANDLING"] = mutationHandlingSteps()
		} else {
			repl["MUTATION_HANDLING"] = ""
		}
		if request.HasKey(keys, keySupportingProps) || target == request.ElementForm {
			repl["ELEMENT_SPECIFIC_PROCESSING"] = fieldDefinitionSteps()
		} else {
			repl["ELEMENT_SPECIFIC_PROCESSING"] = ""
		}
		push(replacePlaceholders(text, repl))
	}

	// Thought process and response format are static apart from the
	// element name.
	for _, name := range []string{FragmentThoughtProcess, FragmentResponseFormat} {
		if text, ok := a.store.Load(name); ok {
			push(replacePlaceholders(text, map[string]string{
				"ELEMENT_TYPE": elementType,
			}))
		}
	}

	// Globals object contract plus per-element examples.
	if text, ok := a.store.Load(FragmentGlobals); ok {
		text = replacePlaceholders(text, map[string]string{
			"ELEMENT_TYPE":                  elementType,
			"GLOBAL_VARIABLE_EXAMPLE_KEY":   globalsExampleKey(target),
			"GLOBAL_VARIABLE_EXAMPLE_VALUE": globalsExampleValue(target),
			"ELEMENT_SPECIFIC_USE_CASES":    elementType + " Specific Examples",
		})
		if examples, ok := a.store.LoadOptional("globals_examples/" + string(target) + ".md"); ok {
			text += examples
		}
		push(text)
	}

	// Helper function contract plus per-element examples.
	if text, ok := a.store.Load(FragmentHelperFunctions); ok {
		text = replacePlaceholders(text, map[string]string{
			"ELEMENT_SPECIFIC_USE_CASES":   elementType + " Specific Examples",
			"HELPER_FUNCTION_EXAMPLE":      "async function apiRequest() { /* api handling logic... */ }",
			"HELPER_FUNCTION_CALL_EXAMPLE": "apiRequest()",
		})
		if examples, ok := a.store.LoadOptional("helper_examples/" + string(target) + ".md"); ok {
			text += examples
		}
		push(text)
	}

	// Preventing duplicate DOM elements.
	if text, ok := a.store.Load(FragmentPreventDuplicates); ok {
		push(replacePlaceholders(text, map[string]string{
			"ELEMENT_TYPE":                  elementType,
			"INTERACTION_TYPE":              interactionType(target),
			"ELEMENT_SPECIFIC_INSTRUCTIONS": duplicateElementAdditions(target),
		}))
	}

	// Invalid and irrelevant request handling.
	if text, ok := a.store.Load(FragmentInvalidRequests); ok {
		push(replacePlaceholders(text, map[string]string{
			"ELEMENT_TYPE":               elementType,
			"MISSING_KEYS_DETAILS":       missingKeysDetails(target),
			"INVALID_DATA_TYPE_DETAILS":  invalidTypeDetails(target),
			"IRRELEVANT_REQUEST_DETAILS": irrelevantRequestDetails(target),
		}))
	}

	// args object access.
	if text, ok := a.store.Load(FragmentArgsAccess); ok {
		push(text)
	}

	// Database interaction keywords: included when the structured key
	// is present or the prompt matches the database lexicon.
	if useDatabase {
		if text, ok := a.store.Load(FragmentDatabaseKeywords); ok {
			repl := map[string]string{
				"ELEMENT_SPECIFIC_DATABASE_INSTRUCTIONS": "",
			}
			if target == request.ElementInput {
				repl["ELEMENT_SPECIFIC_DATABASE_INSTRUCTIONS"] = databaseInputSpecific()
			}
			push(replacePlaceholders(text, repl))
		}
	}

	// Additional guidance; form targets also get the form-builder,
	// CSS, accessibility and responsiveness fragments here.
	if text, ok := a.store.Load(FragmentAdditionals); ok {
		push(text)
	}
	if target == request.ElementForm {
		for _, name := range []string{"form_builder.md", "css_rules.md", "accessibility.md", "responsiveness.md"} {
			if text, ok := a.store.LoadOptional(name); ok {
				push(text)
			}
		}
	}

	// Example snippets: the prompt detectors extend the working key
	// set, then every key resolving to an example fragment is appended
	// in key order.
	working := append(append([]string{}, keys...), DetectExampleKeys(prompt)...)
	for _, key := range working {
		if text, ok := a.store.LoadOptional("examples/" + key + ".md"); ok {
			push(text)
		}
	}

	document := formatDocument(sections)
	a.persist(document)
	return document
}

// formatDocument joins the collected sections and collapses the
// comma-before-heading artifacts the join introduces.
func formatDocument(sections []string) string {
	return strings.ReplaceAll(strings.Join(sections, ","), ",#", "\n#")
}

func (a *Assembler) persist(document string) {
	if a.debugPath == "" {
		return
	}
	if err := os.WriteFile(a.debugPath, []byte(document), 0o644); err != nil {
		a.log.Error("failed to persist instruction document", zap.String("path", a.debugPath), zap.Error(err))
	}
}

// replacePlaceholders substitutes every {NAME} token case-insensitively
// and globally. Placeholders are applied in sorted order for
// determinism; tokens with no replacement survive verbatim, which the
// model tolerates.
func replacePlaceholders(text string, replacements map[string]string) string {
	names := make([]string, 0, len(replacements))
	for name := range replacements {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta("{"+name+"}"))
		text = re.ReplaceAllLiteralString(text, replacements[name])
	}
	return text
}
