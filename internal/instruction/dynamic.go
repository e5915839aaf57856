package instruction

import (
	"github.com/intelligent-react-components/irc-server/internal/request"
)

// Dynamic instruction snippets. Each function is pure: it returns an
// instruction-text fragment (possibly empty) for the given element
// kind or presence flags, and every result is safe to substitute into
// the surrounding markdown, with the empty string a valid value.

// formSpecific extends the general instructions when the target is a
// form: the model also designs structure, fields and styling.
func formSpecific() string {
	return `
Given a natural language description of the desired form, you can generate:

- Form structures: number of fields, arrangement, and overall layout.
- Field definitions: type, labels, placeholders, validation rules.
- Styling: CSS classes or inline styles to achieve the desired visual appearance.
`
}

// mutationHandlingSteps explains mutation-id addressing when the
// request declares mutations.
func mutationHandlingSteps() string {
	return "- **Mutation Handling:** Process mutations from the mutation array. " +
		"If the `mutationType` field is omitted for a mutation, assume that it is a callback function. " +
		"Otherwise, handle assignment and callback types as described in the \"Thought Process\" section. " +
		"Generated code addresses a mutation by its id via `args.[mutationId]`.\n"
}

// databaseConfigSteps explains how supportingProps.database drives
// connection code generation.
func databaseConfigSteps() string {
	return "- **Database Configuration:** If the database field is present in `supportingProps.database`, " +
		"use the `name` and `envGuide` fields to configure the database connection. " +
		"Generate the code to connect to the specified database and handle any database operations mentioned in the prompt. " +
		"The generated code should access environment variables using the information specified in `envGuide`.\n"
}

// fieldDefinitionSteps describes form field-definition processing,
// cross-field @-references, layout, style hints and multi-step forms.
func fieldDefinitionSteps() string {
	return `
**Form Definition Processing:**
- **id:**
  - Process the id field and store it for later use in cross-field references.
  - Other fields can refer to this field using an ` + "`@`" + ` prefix, i.e. @id-field.
  - The id can be referred to from any field, i.e. layout, styleHint, validate.
- **Layout:** Process the ` + "`layout`" + ` hint (e.g. "one-column", "two-column", "grid") to determine the overall form layout.
- **StyleHint:** Process the ` + "`styleHint`" + ` (e.g. "Material Design", "Bootstrap") to determine the desired visual style.
- **Validation:** Process the ` + "`validate`" + ` instruction to determine form-level validation rules.
- **Field Definitions:**
  - Iterate through each entry in the ` + "`fieldDefinitions`" + ` array.
  - Process the ` + "`fieldDefination`" + ` string to determine the field type, label, and other properties.
  - Process the ` + "`styleHint`" + `, ` + "`layout`" + ` and ` + "`validate`" + ` properties for each field.
  - Process the ` + "`step`" + ` property to assign fields to the appropriate step in a multi-step form.
- **MultiStep:**
  - If the ` + "`multiStep`" + ` object is present, determine the number of steps and use each step description as context.
`
}

// databaseInputSpecific lists the database-operation keywords that are
// meaningful when an input element triggers the interaction.
func databaseInputSpecific() string {
	return `
The following keywords in the prompt indicate database operations triggered by input elements and must be processed accordingly:

- **fetch:** retrieving data based on the input value, e.g. "Fetch user details where email matches the input value."
- **insert:** saving new data entered via the input field, e.g. "Insert a new record using the entered title and description."
- **update:** modifying existing data based on the input value, e.g. "Update the status of a task where the task ID matches the input value."
- **delete:** removing data based on the entered value, e.g. "Delete a user where the entered email matches an existing record."
`
}

// selectByElement returns the option matching the element kind; the
// zero value degrades to an empty clause.
func selectByElement(target request.Element, options map[request.Element]string) string {
	return options[target]
}

// requiredKeyAdditions names element-specific required request keys
// for the expected-input section.
func requiredKeyAdditions(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementInput: "- `\"type\"`: A string representing the input type (e.g. `\"text\"`, `\"password\"`, `\"email\"`). " +
			"This key helps tailor the generated code to the specific input type.",
	})
}

// optionalKeyAdditions names element-specific optional request keys.
func optionalKeyAdditions(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementForm: "- `\"layout\"`: Hints for the desired form layout (e.g. `\"one-column\"`, `\"two-column\"`, `\"grid\"`).\n" +
			"- `\"styleHint\"`: Guidelines for the visual style of the form (e.g. `\"Material Design\"`, `\"Bootstrap\"`).\n" +
			"- `\"validate\"`: Instructions for form validation.\n" +
			"- `\"fieldDefinitions\"`: An array of objects defining individual form fields.\n" +
			"- `\"multiStep\"`: Configuration for multi-step forms.",
	})
}

// interactionType names the event family for the anti-duplication
// section.
func interactionType(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementButton: "click, or any mouse event",
		request.ElementInput:  "input, change or any input related event",
		request.ElementForm:   "submit, or any form related event",
	})
}

// duplicateElementAdditions adds form-only guidance about dynamically
// added fields.
func duplicateElementAdditions(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementForm: "7. **Handle Dynamic Content:** If the form needs to dynamically add or remove elements " +
			"(e.g. adding new fields based on user input), implement this logic carefully to avoid creating duplicate elements.",
	})
}

// missingKeysDetails phrases the missing-key validation error per
// element kind.
func missingKeysDetails(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementButton: "The following keys are missing: listener, prompt.",
		request.ElementInput:  "The following keys are missing: listener, prompt, or type.",
		request.ElementForm:   "The input is not valid JSON or does not conform to the expected form props interface. Please refer to the documentation for the correct input format.",
	})
}

// invalidTypeDetails phrases the invalid-type validation error.
func invalidTypeDetails(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementButton: "The 'prompt' field should be a string, but a number was provided.",
		request.ElementInput:  "The request is not related to generating a JavaScript event listener function for a DOM element (such as 'input' or 'button'). Please provide a valid JSON input.",
		request.ElementForm:   "The input is not valid JSON or does not conform to the expected form props interface. Please refer to the documentation for the correct input format.",
	})
}

// irrelevantRequestDetails phrases the irrelevant-request error.
func irrelevantRequestDetails(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementButton: "The request is not related to generating a JavaScript event listener function. Please provide a valid JSON input.",
		request.ElementInput:  "The request is not related to generating a JavaScript event listener function for a DOM element (such as 'input' or 'button'). Please provide a valid JSON input.",
		request.ElementForm:   "The provided prompt is not suitable for generating form elements. Please provide a prompt that describes the desired form structure and fields.",
	})
}

// globalsExampleKey supplies the per-element example key used in the
// globals section.
func globalsExampleKey(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementButton: "numberOfClicks",
		request.ElementInput:  "isValid",
		request.ElementForm:   "isSubmitting",
	})
}

// globalsExampleValue supplies the matching example description.
func globalsExampleValue(target request.Element) string {
	return selectByElement(target, map[request.Element]string{
		request.ElementButton: "Store the number of clicks to persist across subsequent clicks",
		request.ElementInput:  "Store the rules for changing input state such as disable",
		request.ElementForm:   "Store the reference of the submit button so any function can change it",
	})
}
