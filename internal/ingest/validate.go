package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ibms-reporting-service/pkg/errors"
)

// ValidateHeaders checks the first row of an upload against the literal
// header contract for the table type. It fails when the column count
// differs from the expected count ("expects N, met M") or when any
// trimmed header name differs from the expected name at its position; in
// the latter case the diagnostic lists every mismatched column as
// "<actual> : <expected>", not just the first. The transport layer
// surfaces the message verbatim.
func ValidateHeaders(header []string, tableType TableType) error {
	sch, ok := schemas[tableType]
	if !ok {
		return errors.New(errors.CategoryImport, errors.CodeUnknownTableType,
			fmt.Sprintf("unknown table type '%s'", tableType))
	}

	expected := sch.Header()
	if len(header) != len(expected) {
		return errors.HeaderMismatchError(string(tableType), len(expected), len(header), nil)
	}

	var diffs []string
	for i, want := range expected {
		got := strings.TrimSpace(header[i])
		if got != want {
			diffs = append(diffs, fmt.Sprintf("%s : %s", got, want))
		}
	}
	if len(diffs) > 0 {
		return errors.HeaderMismatchError(string(tableType), len(expected), len(header), diffs)
	}
	return nil
}

// truncationGuard trims the value and hard-rejects it when the stripped
// length exceeds the declared maximum. Silent truncation would lose
// information on store, so over-long data fails the import instead.
func truncationGuard(field string, maxLength int, value string) (string, error) {
	value = strings.TrimSpace(value)
	if maxLength > 0 {
		if got := utf8.RuneCountInString(value); got > maxLength {
			return "", errors.FieldTooLongError(field, maxLength, got)
		}
	}
	return value, nil
}
