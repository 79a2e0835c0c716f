package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid uiforge.json",
		Detail:   "The uiforge.json configuration file is malformed.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or cannot be parsed.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E121",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E141": {
		Category: CategoryCLI,
		Message:  "Not a uiforge project",
		Detail:   "The current directory is not a uiforge project. Run this command from a directory with uiforge.json.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E141",
	},

	// ============================================
	// Validation Errors (E200-E209)
	// ============================================

	"E200": {
		Category: CategoryValidation,
		Message:  "Invalid component identifier",
		Detail:   "Component identifiers must be non-empty and use only letters, numbers and dashes.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E200",
	},
	"E201": {
		Category: CategoryValidation,
		Message:  "Composition needs at least two components",
		Detail:   "A super component switches between two or more shared components.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E201",
	},
	"E202": {
		Category: CategoryValidation,
		Message:  "Component is not eligible",
		Detail:   "The component cannot take part in this operation.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E202",
	},
	"E203": {
		Category: CategoryValidation,
		Message:  "Component not found",
		Detail:   "The component is not registered in the catalog.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E203",
	},
	"E204": {
		Category: CategoryValidation,
		Message:  "Invalid workflow transition",
		Detail:   "The requested action is not allowed in the current workflow state.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E204",
	},
	"E205": {
		Category: CategoryValidation,
		Message:  "Workflow busy",
		Detail:   "Another promotion, composition or deletion is in progress.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E205",
	},

	// ============================================
	// Collaborator Errors (E210-E219)
	// ============================================

	"E210": {
		Category: CategoryCollaborator,
		Message:  "Scaffold generator unavailable",
		Detail:   "The scaffold generator could not be reached or did not answer in time.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E210",
	},
	"E211": {
		Category: CategoryCollaborator,
		Message:  "Scaffold generation failed",
		Detail:   "The scaffold generator rejected the request or failed to write files.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E211",
	},

	// ============================================
	// Structural Errors (E220-E229)
	// ============================================

	"E220": {
		Category: CategoryStructural,
		Message:  "Unresolvable structural error",
		Detail:   "Removing a reference left more closing braces than opening braces; the file was left untouched.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E220",
	},

	// ============================================
	// Walk Errors (E230-E239)
	// ============================================

	"E230": {
		Category: CategoryWalk,
		Message:  "Partial walk failure",
		Detail:   "Some files could not be read or written. Files already changed stay changed.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E230",
	},
	"E231": {
		Category: CategoryWalk,
		Message:  "Source root not found",
		Detail:   "The directory to walk does not exist.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E231",
	},

	// ============================================
	// Catalog Errors (E240-E249)
	// ============================================

	"E240": {
		Category: CategoryCatalog,
		Message:  "Catalog persistence failed",
		Detail:   "The catalog could not be written to its durable document.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E240",
	},
	"E241": {
		Category: CategoryCatalog,
		Message:  "Invalid catalog document",
		Detail:   "The catalog document could not be parsed.",
		DocURL:   "https://vango.dev/docs/uiforge/errors/E241",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
