package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryImport        ErrorCategory = "import"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryReport        ErrorCategory = "report"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Import errors
	CodeHeaderMismatch   ErrorCode = "header_mismatch"
	CodeFieldTooLong     ErrorCode = "field_too_long"
	CodeRowParse         ErrorCode = "row_parse"
	CodeUnknownTableType ErrorCode = "unknown_table_type"

	// Validation errors
	CodeInvalidYear  ErrorCode = "invalid_year"
	CodeMissingField ErrorCode = "missing_field"
	CodeInvalidData  ErrorCode = "invalid_data"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Report errors
	CodeMultiYearQuery ErrorCode = "multi_year_query"
	CodeInvalidFilter  ErrorCode = "invalid_filter"
	CodeUnknownFlavor  ErrorCode = "unknown_flavor"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// IBMSError is the base error type for all application errors.
//
// Import and report errors are user-facing: the transport layer renders
// Message verbatim, so messages carry the full diagnostic (for header
// mismatches, every mismatched column).
type IBMSError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *IBMSError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *IBMSError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *IBMSError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryImport, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReport, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *IBMSError) WithContext(key string, value interface{}) *IBMSError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *IBMSError) WithSuggestion(suggestion string) *IBMSError {
	e.Suggestion = suggestion
	return e
}

// New creates a new IBMSError
func New(category ErrorCategory, code ErrorCode, message string) *IBMSError {
	return &IBMSError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with IBMSError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *IBMSError {
	if err == nil {
		return nil
	}

	return &IBMSError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *IBMSError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and re-download the extract"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *IBMSError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// HeaderMismatchError creates the user-facing header validation error.
// diffs holds one "<actual> : <expected>" line per mismatched column.
func HeaderMismatchError(tableType string, expected, actual int, diffs []string) *IBMSError {
	var message string
	if expected != actual {
		message = fmt.Sprintf(
			"file contains the wrong number of columns for %s: expects %d, met %d",
			tableType, expected, actual)
	} else {
		message = fmt.Sprintf(
			"file header does not match the %s format:\n%s",
			tableType, strings.Join(diffs, "\n"))
	}

	return New(CategoryImport, CodeHeaderMismatch, message).
		WithSuggestion("download a fresh extract and upload it unmodified").
		WithContext("table_type", tableType).
		WithContext("expected_columns", expected).
		WithContext("actual_columns", actual)
}

// FieldTooLongError creates the hard-reject truncation error. Data that
// would silently lose information on store is refused instead.
func FieldTooLongError(field string, maxLength, gotLength int) *IBMSError {
	message := fmt.Sprintf(
		"field %s cannot be truncated: value is %d characters, maximum is %d",
		field, gotLength, maxLength)

	return New(CategoryImport, CodeFieldTooLong, message).
		WithSuggestion(fmt.Sprintf("shorten the %s value in the source system", field)).
		WithContext("field", field).
		WithContext("max_length", maxLength)
}

// RowParseError creates a row-level import error carrying the 1-indexed
// row number and the raw row content.
func RowParseError(tableType string, row int, rawRow []string, err error) *IBMSError {
	message := fmt.Sprintf(
		"import of %s aborted at row %d (%s): %v",
		tableType, row, strings.Join(rawRow, ","), err)

	return Wrap(err, CategoryImport, CodeRowParse, message).
		WithContext("table_type", tableType).
		WithContext("row", row)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *IBMSError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidYear:
		message = fmt.Sprintf("invalid financial year in field '%s': %v", field, value)
		suggestion = "use the YYYY/YY format, e.g. 2024/25"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *IBMSError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *IBMSError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *IBMSError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReportError creates a report-assembly error
func ReportError(code ErrorCode, detail string, err error) *IBMSError {
	var message string
	var suggestion string

	switch code {
	case CodeMultiYearQuery:
		message = fmt.Sprintf("report filter spans more than one financial year: %s", detail)
		suggestion = "scope the report to exactly one financial year"
	case CodeInvalidFilter:
		message = fmt.Sprintf("invalid report filter: %s", detail)
		suggestion = "select at most one of cost centre, region/branch or division"
	case CodeUnknownFlavor:
		message = fmt.Sprintf("unknown report flavor: %s", detail)
		suggestion = "valid flavors: servicepriority, dataamendment, download, codeupdate"
	default:
		message = fmt.Sprintf("report error: %s", detail)
		suggestion = "review the report parameters"
	}

	var result *IBMSError
	if err != nil {
		result = Wrap(err, CategoryReport, code, message)
	} else {
		result = New(CategoryReport, code, message)
	}

	return result.WithSuggestion(suggestion).WithContext("detail", detail)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *IBMSError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *IBMSError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// Utility functions

// IsIBMSError checks if an error is an IBMSError
func IsIBMSError(err error) bool {
	_, ok := err.(*IBMSError)
	return ok
}

// AsIBMSError extracts an IBMSError from an error chain
func AsIBMSError(err error) (*IBMSError, bool) {
	var ibmsErr *IBMSError
	if errors.As(err, &ibmsErr) {
		return ibmsErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	if ibmsErr, ok := AsIBMSError(err); ok {
		return ibmsErr.Code == code
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already an IBMSError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *IBMSError {
	if err == nil {
		return nil
	}

	if ibmsErr, ok := AsIBMSError(err); ok {
		return ibmsErr
	}

	return Wrap(err, category, code, message)
}
