package request

// Element identifies the kind of DOM element a generation targets.
type Element string

const (
	ElementButton Element = "button"
	ElementInput  Element = "input"
	ElementForm   Element = "form"
)

// Valid reports whether the element is one of the supported kinds.
func (e Element) Valid() bool {
	switch e {
	case ElementButton, ElementInput, ElementForm:
		return true
	}
	return false
}

// Database describes the database context available to generated code.
type Database struct {
	Name     string `json:"name"`
	EnvGuide string `json:"envGuide,omitempty"`
}

// SupportingProps carries caller-supplied context referenced from the
// prompt: utilities ($-prefixed aliases), variables (_-prefixed
// aliases) and optional database configuration.
type SupportingProps struct {
	Utils     map[string]interface{} `json:"utils,omitempty"`
	Variables map[string]interface{} `json:"variables,omitempty"`
	Database  *Database              `json:"database,omitempty"`
}

// Mutation is a caller-declared state update the generated handler may
// invoke by id via args.[id].
type Mutation struct {
	ID           string      `json:"id"`
	ReturnFormat interface{} `json:"returnFormat,omitempty"`
	Mutate       interface{} `json:"mutate,omitempty"`
	MutationType string      `json:"mutationType,omitempty"` // "callback" or "assignment"
}

// IndependentCallback is invoked by generated code with no arguments.
type IndependentCallback struct {
	CallGuide string      `json:"callGuide"`
	Callback  interface{} `json:"callback"`
}

// DependentCallback is invoked with model-determined arguments.
type DependentCallback struct {
	CallGuide       string      `json:"callGuide"`
	ParametersGuide []string    `json:"parametersGuide,omitempty"`
	Callback        interface{} `json:"callback"`
}

// Callbacks groups the caller-supplied functions generated code may
// invoke by name.
type Callbacks struct {
	Independent []IndependentCallback `json:"independent,omitempty"`
	Dependent   []DependentCallback   `json:"dependent,omitempty"`
}

// FieldDefinition describes a single form field (form element only).
type FieldDefinition struct {
	ID              string `json:"id,omitempty"`
	Type            string `json:"type,omitempty"`
	FieldDefination string `json:"fieldDefination,omitempty"`
	StyleHint       string `json:"styleHint,omitempty"`
	Layout          string `json:"layout,omitempty"`
	Validate        string `json:"validate,omitempty"`
	Step            int    `json:"step,omitempty"`
}

// MultiStepStep is one step of a multi-step form.
type MultiStepStep struct {
	Title     string   `json:"title,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	Desc      string   `json:"desc,omitempty"`
	Layout    string   `json:"layout,omitempty"`
	StyleHint string   `json:"styleHint,omitempty"`
	Validate  string   `json:"validate,omitempty"`
}

// MultiStep configures a multi-step form.
type MultiStep struct {
	Steps []MultiStepStep `json:"steps,omitempty"`
}

// GenerationRequest describes one UI element's desired behavior. It is
// the body of POST /prompt-to-code.
type GenerationRequest struct {
	Element         Element          `json:"element"`
	Prompt          string           `json:"prompt"`
	Filename        string           `json:"filename"`
	Listener        string           `json:"listener"`
	Type            string           `json:"type,omitempty"` // input element only
	CacheResponse   bool             `json:"cacheResponse,omitempty"`
	SupportingProps *SupportingProps `json:"supportingProps,omitempty"`
	Mutation        []Mutation       `json:"mutation,omitempty"`
	Callbacks       *Callbacks       `json:"callbacks,omitempty"`
	OnInit          interface{}      `json:"onInit,omitempty"`
	Feedback        string           `json:"feedback,omitempty"`

	// Form-only fields. Validation keeps the wire name "validate"; the
	// Go field is named apart from the Validate method.
	FieldDefinitions []FieldDefinition `json:"fieldDefinitions,omitempty"`
	Layout           string            `json:"layout,omitempty"`
	StyleHint        string            `json:"styleHint,omitempty"`
	Validation       string            `json:"validate,omitempty"`
	MultiStep        *MultiStep        `json:"multiStep,omitempty"`
}

// StyleSheet is the optional CSS block of a model response.
type StyleSheet struct {
	Styles string `json:"styles"`
}

// ResponseBody is the success branch of an AIResponse.
type ResponseBody struct {
	EventListener   string                 `json:"eventListener"`
	Globals         map[string]interface{} `json:"globals,omitempty"`
	Imports         []string               `json:"imports,omitempty"`
	HelperFunctions []string               `json:"helperFunctions,omitempty"`
	OnInitialRender string                 `json:"onInitialRender,omitempty"`
	FormBuilder     string                 `json:"formBuilder,omitempty"`
	CSS             *StyleSheet            `json:"CSS,omitempty"`
}

// ErrorDetail is the structured error branch of an AIResponse.
type ErrorDetail struct {
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// IsZero reports whether no error field is populated. The model emits
// "error": {} on success, so emptiness is the success signal.
func (e ErrorDetail) IsZero() bool {
	return e.Message == "" && e.Status == 0 && e.Details == "" && e.Code == ""
}

// AIResponse is the parsed model response. Exactly one of Response or
// a populated Error is authoritative for a given call; callers must
// check HasError before touching Response.
type AIResponse struct {
	Thoughts string        `json:"thoughts,omitempty"`
	Response *ResponseBody `json:"response,omitempty"`
	Error    ErrorDetail   `json:"error"`
	Expect   string        `json:"expect,omitempty"`
}

// HasError reports whether the error branch is populated.
func (r *AIResponse) HasError() bool {
	return !r.Error.IsZero()
}

// Terminal reports whether the error carries a non-2xx status, which
// ends the attempt instead of allowing a retry.
func (r *AIResponse) Terminal() bool {
	return r.HasError() && (r.Error.Status < 200 || r.Error.Status > 299)
}
