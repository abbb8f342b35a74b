package faults

import "strings"

// Standard error codes used across the pipeline for consistent reporting.
// Codes are prefixed by subsystem so the category can be inferred when a
// caller does not supply one explicitly.
const (
	// CodeUnknown is the generic code applied to wrapped foreign values.
	CodeUnknown = "UNKNOWN_ERROR"

	// Validation codes.
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeValidationSchema = "VALIDATION_SCHEMA_MISMATCH"

	// Network codes.
	CodeNetworkError        = "NETWORK_ERROR"
	CodeNetworkTimeout      = "NETWORK_TIMEOUT"
	CodeNetworkServerError  = "NETWORK_SERVER_ERROR"
	CodeNetworkNotFound     = "NETWORK_NOT_FOUND"
	CodeNetworkForbidden    = "NETWORK_FORBIDDEN"
	CodeNetworkUnauthorized = "NETWORK_UNAUTHORIZED"
	CodeNetworkRateLimited  = "NETWORK_RATE_LIMITED"
	CodeNetworkRefused      = "NETWORK_CONNECTION_REFUSED"
	CodeNetworkReset        = "NETWORK_CONNECTION_RESET"
	CodeNetworkDNSFailure   = "NETWORK_DNS_FAILURE"
	CodeNetworkUnreachable  = "NETWORK_UNREACHABLE"

	// Filesystem codes.
	CodeFileError          = "FILE_ERROR"
	CodeFileNotFound       = "FILE_NOT_FOUND"
	CodeFilePermission     = "FILE_PERMISSION_DENIED"
	CodeFileDiskFull       = "FILE_DISK_FULL"
	CodeFilePathTooLong    = "FILE_PATH_TOO_LONG"
	CodeFileBusy           = "FILE_BUSY"
	CodeFileTooManyOpen    = "FILE_TOO_MANY_OPEN"
	CodeFileSymlinkLoop    = "FILE_SYMLINK_LOOP"
	CodeFileReadOnly       = "FILE_READ_ONLY"
	CodeFileAlreadyExists  = "FILE_ALREADY_EXISTS"
	CodeFileWriteFailed    = "FILE_WRITE_FAILED"

	// Template codes.
	CodeTemplateError        = "TEMPLATE_ERROR"
	CodeTemplateSyntax       = "TEMPLATE_SYNTAX_ERROR"
	CodeTemplateRenderFailed = "TEMPLATE_RENDER_FAILED"
	CodeTemplateNotFound     = "TEMPLATE_NOT_FOUND"

	// Configuration and parsing codes.
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeConfigMissing = "CONFIG_MISSING"
	CodeParseFailed   = "PARSE_FAILED"
)

// Category classifies errors by subsystem for recovery planning and
// aggregation. Categories decide which recovery strategy is dispatched.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryFilesystem    Category = "filesystem"
	CategoryNetwork       Category = "network"
	CategoryTemplate      Category = "template"
	CategoryConfiguration Category = "configuration"
	CategoryParsing       Category = "parsing"
	CategoryFatal         Category = "fatal"
	CategoryGeneral       Category = "general"
)

// Severity indicates how a record should be presented and whether the
// overall operation can continue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// categoryPrefixes maps code prefixes to categories for inference when a
// caller does not supply a category explicitly.
var categoryPrefixes = []struct {
	prefix   string
	category Category
}{
	{"VALIDATION", CategoryValidation},
	{"NETWORK", CategoryNetwork},
	{"FILE", CategoryFilesystem},
	{"TEMPLATE", CategoryTemplate},
	{"CONFIG", CategoryConfiguration},
	{"PARSE", CategoryParsing},
	{"FATAL", CategoryFatal},
}

// CategoryForCode infers the category from a code's prefix.
// Unknown prefixes default to CategoryGeneral.
func CategoryForCode(code string) Category {
	for _, p := range categoryPrefixes {
		if strings.HasPrefix(code, p.prefix) {
			return p.category
		}
	}
	return CategoryGeneral
}
