package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// FormatForCLI renders err for terminal output with its hint and code.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var re *RagError
	if !stderrors.As(err, &re) {
		re = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", re.Message)
	if re.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", re.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", re.Code)
	return sb.String()
}

// LogAttrs flattens err into key-value pairs for slog.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}
	var re *RagError
	if !stderrors.As(err, &re) {
		return []any{"error", err.Error()}
	}
	attrs := []any{
		"error_code", re.Code,
		"error", re.Message,
		"category", string(re.Category),
	}
	if re.Cause != nil {
		attrs = append(attrs, "cause", re.Cause.Error())
	}
	for k, v := range re.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
