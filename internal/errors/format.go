package errors

import (
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	je, ok := as(err)
	if !ok {
		return fmt.Sprintf("Error: %s\n", err.Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", je.Message)
	if je.Cause != nil && je.Cause.Error() != je.Message {
		fmt.Fprintf(&sb, "  Cause: %s\n", je.Cause.Error())
	}
	if je.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", je.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", je.Code)
	return sb.String()
}

// LogAttrs returns slog attributes describing err, for use as
// logger.Warn("event", errors.LogAttrs(err)...).
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	je, ok := as(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error", je.Error()),
		slog.String("error_code", je.Code),
		slog.String("category", string(je.Category)),
		slog.String("severity", string(je.Severity)),
	}
	for k, v := range je.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
