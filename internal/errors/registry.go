package errors

// Error codes used across the marketplace.
const (
	CodeNotFound          = "E100"
	CodeDuplicateIdentity = "E101"
	CodeInvalidEntry      = "E102"
	CodeSourceUnavailable = "E103"
	CodeInvalidCatalog    = "E104"

	CodeInvalidConfig      = "E120"
	CodeInvalidConfigValue = "E121"

	CodeAlreadyInstalled = "E140"
	CodeNotInstalled     = "E141"
	CodeInvalidVersion   = "E142"
	CodeInvalidRef       = "E143"
	CodeManifestCorrupt  = "E144"
	CodeFilesystem       = "E145"
	CodeUnknownSetting   = "E146"
	CodeInvalidSetting   = "E147"
)

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
	// Catalog Errors (E100-E119)
	// ============================================

	CodeNotFound: {
		Category: CategoryCatalog,
		Message:  "Plugin not found",
		Detail:   "The requested plugin is not available in the marketplace registry.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E100",
	},
	CodeDuplicateIdentity: {
		Category: CategoryCatalog,
		Message:  "Plugin already registered",
		Detail:   "A plugin with the same namespace and name already exists in the registry.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E101",
	},
	CodeInvalidEntry: {
		Category: CategoryCatalog,
		Message:  "Invalid catalog entry",
		Detail:   "The catalog entry is missing required fields or has inconsistent versions.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E102",
	},
	CodeSourceUnavailable: {
		Category: CategoryCatalog,
		Message:  "Catalog source unavailable",
		Detail:   "Unable to read the plugin catalog from the configured source.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E103",
	},
	CodeInvalidCatalog: {
		Category: CategoryCatalog,
		Message:  "Invalid catalog document",
		Detail:   "The catalog document could not be decoded.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E104",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid marketplace.json",
		Detail:   "The marketplace.json configuration file is malformed.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E120",
	},
	CodeInvalidConfigValue: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not recognized.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E121",
	},

	// ============================================
	// Install Errors (E140-E159)
	// ============================================

	CodeAlreadyInstalled: {
		Category: CategoryInstall,
		Message:  "Plugin already installed",
		Detail:   "The plugin is already installed. Use update to change versions.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E140",
	},
	CodeNotInstalled: {
		Category: CategoryInstall,
		Message:  "Plugin not installed",
		Detail:   "The plugin is not installed locally.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E141",
	},
	CodeInvalidVersion: {
		Category: CategoryInstall,
		Message:  "Version not found",
		Detail:   "The requested version is not published for this plugin.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E142",
	},
	CodeInvalidRef: {
		Category: CategoryCLI,
		Message:  "Invalid plugin reference",
		Detail:   "Plugin references use the format namespace/name.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E143",
	},
	CodeManifestCorrupt: {
		Category: CategoryInstall,
		Message:  "Manifest corrupt",
		Detail:   "The install manifest could not be decoded.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E144",
	},
	CodeFilesystem: {
		Category: CategoryIO,
		Message:  "Filesystem operation failed",
		Detail:   "",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E145",
	},
	CodeUnknownSetting: {
		Category: CategoryInstall,
		Message:  "Unknown setting",
		Detail:   "The plugin does not declare this setting.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E146",
	},
	CodeInvalidSetting: {
		Category: CategoryInstall,
		Message:  "Invalid setting value",
		Detail:   "The value does not match the type or options declared by the plugin.",
		DocURL:   "https://vango.dev/docs/marketplace/errors/E147",
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
