package lang

// Language represents a supported source language.
type Language string

const (
	JavaScript Language = "javascript"
	HTML       Language = "html"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{JavaScript, HTML}
}

// LanguageSpec defines the tree-sitter node types the module locator matches
// for a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	// ProgramNodeTypes lists root node kinds.
	ProgramNodeTypes []string
	// StatementNodeTypes lists top-level statement kinds that can carry a define call.
	StatementNodeTypes []string
	// SequenceNodeTypes lists comma-operator expression kinds (production bundles).
	SequenceNodeTypes   []string
	CallNodeTypes       []string
	IdentifierNodeTypes []string
	StringNodeTypes     []string
	// StringFragmentTypes are the children of a string node holding raw text.
	StringFragmentTypes []string
	// EscapeSequenceTypes are the children of a string node holding escapes.
	EscapeSequenceTypes []string
	ArrayNodeTypes      []string
	// FunctionNodeTypes lists factory kinds accepted as the third define argument.
	FunctionNodeTypes []string
	// CommentNodeTypes are skipped wherever named children are counted.
	CommentNodeTypes []string

	// Parameter pattern kinds inside formal parameter lists.
	AssignmentPatternTypes []string
	RestPatternTypes       []string

	// HTML only: script elements and their attributes, used to find the
	// bundles an index page loads.
	ScriptElementTypes  []string
	StartTagTypes       []string
	AttributeTypes      []string
	AttributeNameTypes  []string
	AttributeValueTypes []string
	QuotedValueTypes    []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".js").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// Is reports whether kind is one of kinds.
func Is(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
