package builder

import "strings"

// Results accumulates per-project outcomes in completion order.
type Results struct {
	Passed []string
	Failed []string
}

// Summary renders the cumulative pass/fail lists, omitting empty sections.
func (r *Results) Summary() string {
	var b strings.Builder
	if len(r.Passed) > 0 {
		b.WriteString("Passed: " + strings.Join(r.Passed, ", "))
	}
	if len(r.Failed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Failed: " + strings.Join(r.Failed, ", "))
	}
	return b.String()
}
