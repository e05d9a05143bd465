package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Aman-CERP/amanjournal/internal/embed"
)

// CheckStatus is the outcome of one check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns PASS, WARN or FAIL.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status as its name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult is the result of one check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// DefaultProbeTimeout bounds the embedding provider probe.
const DefaultProbeTimeout = 10 * time.Second

// Checker runs the checks.
type Checker struct {
	embedder     embed.Embedder
	probeTimeout time.Duration
	verbose      bool
	output       io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithEmbedder enables the provider probe. Without it the check reports
// vector search as disabled.
func WithEmbedder(e embed.Embedder) Option {
	return func(c *Checker) { c.embedder = e }
}

// WithProbeTimeout overrides DefaultProbeTimeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithVerbose prints details under each result.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets where PrintResults writes.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout, probeTimeout: DefaultProbeTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against the journal at journalDir. Checks that
// need the directory are skipped when it is missing.
func (c *Checker) RunAll(ctx context.Context, journalDir string) []CheckResult {
	dir := c.CheckJournalDir(journalDir)
	results := []CheckResult{dir}
	if dir.Status != StatusFail {
		results = append(results,
			c.CheckWritePermissions(journalDir),
			c.CheckDiskSpace(journalDir),
			c.CheckJournalLock(journalDir),
		)
	}
	results = append(results,
		c.CheckFileDescriptors(),
		c.CheckEmbedder(ctx),
	)
	return results
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "ready", "ready_with_warnings" or "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	warned := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			warned = true
		}
	}
	if warned {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults writes a human-readable report.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "amanjournal doctor")
	_, _ = fmt.Fprintln(c.output, "==================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var problems []string
	for _, r := range results {
		if r.Status == StatusPass {
			continue
		}
		line := r.Name + ": " + r.Message
		if r.Details != "" && !c.verbose {
			line += " (" + r.Details + ")"
		}
		problems = append(problems, line)
	}
	if len(problems) > 0 {
		_, _ = fmt.Fprintln(c.output)
		for _, p := range problems {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", p)
		}
	}
}
