package errors

import "net/http"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Status   int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (W001-W039)
	// ============================================

	"W001": {
		Category: CategoryRuntime,
		Message:  "Transport unavailable",
		Detail:   "No upstream connection has been observed yet, so nothing can be sent.",
		Status:   http.StatusServiceUnavailable,
	},
	"W002": {
		Category: CategoryRuntime,
		Message:  "State unavailable",
		Detail:   "No state code was observed before the wait expired.",
		Status:   http.StatusGatewayTimeout,
	},
	"W003": {
		Category: CategoryRuntime,
		Message:  "Send failed",
		Detail:   "The frame was built but the upstream connection rejected it.",
		Status:   http.StatusBadGateway,
	},
	"W004": {
		Category: CategoryRuntime,
		Message:  "Relay busy",
		Detail:   "Another client is already relayed. Only one relay runs at a time.",
		Status:   http.StatusConflict,
	},
	"W005": {
		Category: CategoryRuntime,
		Message:  "Upstream dial failed",
		Detail:   "The relay could not open a websocket to the upstream server.",
		Status:   http.StatusBadGateway,
	},
	"W006": {
		Category: CategoryRuntime,
		Message:  "Empty state code",
		Detail:   "A state code must not be empty.",
		Status:   http.StatusBadRequest,
	},
	"W007": {
		Category: CategoryRuntime,
		Message:  "Invalid request",
		Detail:   "The request body or parameters could not be parsed.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Protocol Errors (W040-W059)
	// ============================================

	"W040": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "The frame ended before all of its fields could be read.",
		Status:   http.StatusBadRequest,
	},
	"W041": {
		Category: CategoryProtocol,
		Message:  "Invalid frame length",
		Detail:   "The declared length does not match the frame size.",
		Status:   http.StatusBadRequest,
	},
	"W042": {
		Category: CategoryProtocol,
		Message:  "String too long",
		Detail:   "Strings are limited to 65535 bytes by their length prefix.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Config and Store Errors (W100-W139)
	// ============================================

	"W100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be parsed or failed validation.",
		Status:   http.StatusInternalServerError,
	},
	"W101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No wiretap.json or wiretap.toml was found.",
		Status:   http.StatusInternalServerError,
	},
	"W102": {
		Category: CategoryConfig,
		Message:  "Configuration file already exists",
		Detail:   "Refusing to overwrite an existing configuration file.",
		Status:   http.StatusConflict,
	},
	"W120": {
		Category: CategoryStore,
		Message:  "Record not found",
		Detail:   "No saved record has this id.",
		Status:   http.StatusNotFound,
	},
	"W121": {
		Category: CategoryStore,
		Message:  "Store unavailable",
		Detail:   "The record store could not be read or written.",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// CLI Errors (W140-W159)
	// ============================================

	"W140": {
		Category: CategoryCLI,
		Message:  "Invalid hex input",
		Detail:   "The frame must be given as hexadecimal bytes, optionally separated by spaces.",
		Status:   http.StatusBadRequest,
	},
	"W141": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The relay server stopped with an error.",
		Status:   http.StatusInternalServerError,
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
