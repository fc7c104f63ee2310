// Package notice defines the user-facing outcome of an editor action or a
// synchronizer call.
//
// Nothing in the editor core raises a toast or prints to a terminal. Every
// operation returns zero or more [Notice] values and the presentation layer
// (the terminal editor, the session server's JSON response) decides how to
// show them.
package notice

import "fmt"

// Severity ranks a notice.
type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Warn    Severity = "warn"
	Error   Severity = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail,omitempty"`
}

// String formats the notice as "summary: detail".
func (n Notice) String() string {
	if n.Detail == "" {
		return n.Summary
	}
	return fmt.Sprintf("%s: %s", n.Summary, n.Detail)
}

// Successf returns a success notice.
func Successf(summary, format string, args ...any) Notice {
	return Notice{Severity: Success, Summary: summary, Detail: fmt.Sprintf(format, args...)}
}

// Infof returns an info notice.
func Infof(summary, format string, args ...any) Notice {
	return Notice{Severity: Info, Summary: summary, Detail: fmt.Sprintf(format, args...)}
}

// Warnf returns a warning notice.
func Warnf(summary, format string, args ...any) Notice {
	return Notice{Severity: Warn, Summary: summary, Detail: fmt.Sprintf(format, args...)}
}

// Errorf returns an error notice.
func Errorf(summary, format string, args ...any) Notice {
	return Notice{Severity: Error, Summary: summary, Detail: fmt.Sprintf(format, args...)}
}

// Worst returns the highest severity among notices, or "" for none.
func Worst(notices []Notice) Severity {
	rank := map[Severity]int{Success: 1, Info: 2, Warn: 3, Error: 4}
	var worst Severity
	for _, n := range notices {
		if rank[n.Severity] > rank[worst] {
			worst = n.Severity
		}
	}
	return worst
}
