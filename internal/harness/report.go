package harness

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Report markers.
const (
	MarkerPass   = "✅"
	MarkerFail   = "⛔"
	MarkerNoTest = "⏺️"
	MarkerWarn   = "⚠️"
)

// reporter writes whole groups of lines atomically so that lines from
// concurrently finishing units never interleave mid-group.
type reporter struct {
	mu sync.Mutex
	w  io.Writer
}

func newReporter(w io.Writer) *reporter {
	if w == nil {
		w = io.Discard
	}
	return &reporter{w: w}
}

// write emits lines. Write errors are dropped: a broken report sink must
// not fail the probes.
func (r *reporter) write(lines []string) {
	if len(lines) == 0 {
		return
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, b.String())
}

func headerLines(environment string) []string {
	return []string{
		"Capability check: " + environment,
		fmt.Sprintf("%s - Pass, %s - Fail, %s - No test, %s - Missing aliases",
			MarkerPass, MarkerFail, MarkerNoTest, MarkerWarn),
		"",
	}
}

func outcomeLines(o Outcome) []string {
	var lines []string

	switch o.Status {
	case StatusPassed:
		if o.Note != "" {
			lines = append(lines, fmt.Sprintf("%s %s • %s", MarkerPass, o.Name, o.Note))
		} else {
			lines = append(lines, fmt.Sprintf("%s %s", MarkerPass, o.Name))
		}
	case StatusFailed:
		lines = append(lines, fmt.Sprintf("%s %s failed: %s", MarkerFail, o.Name, o.Message))
		if len(o.MissingDependencies) > 0 {
			lines = append(lines, fmt.Sprintf("%s %s may have failed because of missing dependencies: %s",
				MarkerWarn, o.Name, strings.Join(o.MissingDependencies, ", ")))
		}
	case StatusSkipped:
		lines = append(lines, fmt.Sprintf("%s %s", MarkerNoTest, o.Name))
	}

	if len(o.MissingAliases) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s is missing aliases: %s",
			MarkerWarn, o.Name, strings.Join(o.MissingAliases, ", ")))
	}
	return lines
}

func footerLines(s *Summary) []string {
	lines := []string{"", "Summary for " + s.Environment}

	if s.NoTestsExecuted() {
		lines = append(lines, MarkerNoTest+" No tests executed")
	} else {
		lines = append(lines, fmt.Sprintf("%s Tested with a %d%% success rate (%d out of %d)",
			MarkerPass, s.SuccessRate, s.Passes, s.Executed))
	}

	return append(lines,
		fmt.Sprintf("%s %s failed", MarkerFail, plural(s.Fails, "test")),
		fmt.Sprintf("%s %s without a test", MarkerNoTest, plural(s.Skipped, "probe")),
		fmt.Sprintf("%s %s missing aliases", MarkerWarn, plural(s.UndefinedAliasGroups, "probe")),
	)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
