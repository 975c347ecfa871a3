package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"ibms-reporting-service/pkg/errors"
	"ibms-reporting-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	// Log the error
	h.logger.WithError(err).Error("Command failed")

	if ibmsErr, ok := errors.AsIBMSError(err); ok {
		return h.handleIBMSError(ibmsErr)
	}

	return h.handleGenericError(err)
}

// handleIBMSError handles IBMSError with detailed context
func (h *CLIErrorHandler) handleIBMSError(err *errors.IBMSError) int {
	// Print the main error message
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	// Add context information if available
	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	// Add suggestion if available
	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	// Show underlying error in verbose mode
	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-IBMSError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory") {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, check the logs or run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryImport:
		return `Import error help:
• Check the extract's header row against the table type's contract
• The extract must come straight from the financial system unmodified
• Over-length fields are never truncated: fix the source data
• Ensure the file uses UTF-8 encoding and the financial year is YYYY/YY`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Verify financial years use the YYYY/YY format (e.g. 2024/25)
• Ensure amounts are decimal numbers; currency symbols are tolerated
• Check that all values are within acceptable ranges`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Try running with default settings first`

	case errors.CategoryReport:
		return `Report error help:
• Run a report against exactly one financial year
• Cost centre, region/branch and division are mutually exclusive
• The DJ0 code-update variants require elevated privilege
• Supported flavors: servicepriority, dataamendment, download, codeupdate`

	default:
		return `For more help:
• Use 'ibms --help' for general help
• Use 'ibms <command> --help' for command-specific help
• Report bugs or ask for help on the project repository`
	}
}
