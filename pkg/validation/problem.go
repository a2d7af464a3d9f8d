package validation

import (
	"fmt"
	"strings"

	"github.com/rzbill/keel/pkg/types"
)

// Severity orders problems. Only Error and Fatal block a mutation.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity accepts the names printed by String in any case, plus
// "warn".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(s) {
	case "INFO", "":
		return SeverityInfo, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "FATAL":
		return SeverityFatal, nil
	}
	return SeverityInfo, types.IllegalArgumentf("unknown severity %q", s)
}

// Blocking reports whether s prevents persistence.
func (s Severity) Blocking() bool {
	return s >= SeverityError
}

// Problem is a single validation finding.
type Problem struct {
	Severity    Severity
	Message     string
	Remediation string
	// Location is the path of the node the problem was found on.
	Location string
}

// WithRemediation attaches a suggested fix and returns p.
func (p *Problem) WithRemediation(format string, args ...interface{}) *Problem {
	p.Remediation = fmt.Sprintf(format, args...)
	return p
}

func (p *Problem) String() string {
	var b strings.Builder
	b.WriteString(p.Severity.String())
	if p.Location != "" {
		b.WriteString(" ")
		b.WriteString(p.Location)
	}
	b.WriteString(": ")
	b.WriteString(p.Message)
	if p.Remediation != "" {
		b.WriteString(" (")
		b.WriteString(p.Remediation)
		b.WriteString(")")
	}
	return b.String()
}

// ProblemSet collects problems in the order they were found.
type ProblemSet struct {
	problems []*Problem
}

// NewProblemSet returns an empty set.
func NewProblemSet() *ProblemSet {
	return &ProblemSet{}
}

// Add appends p.
func (ps *ProblemSet) Add(p *Problem) {
	ps.problems = append(ps.problems, p)
}

// Merge appends every problem of other.
func (ps *ProblemSet) Merge(other *ProblemSet) {
	if other == nil {
		return
	}
	ps.problems = append(ps.problems, other.problems...)
}

// Problems returns the problems in insertion order.
func (ps *ProblemSet) Problems() []*Problem {
	if ps == nil {
		return nil
	}
	return append([]*Problem(nil), ps.problems...)
}

// Len returns the number of problems.
func (ps *ProblemSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.problems)
}

// Empty reports whether no problem was found.
func (ps *ProblemSet) Empty() bool {
	return ps.Len() == 0
}

// MaxSeverity returns the highest severity present, or SeverityInfo for an
// empty set.
func (ps *ProblemSet) MaxSeverity() Severity {
	max := SeverityInfo
	for _, p := range ps.Problems() {
		if p.Severity > max {
			max = p.Severity
		}
	}
	return max
}

// Blocking reports whether any problem is an error or fatal.
func (ps *ProblemSet) Blocking() bool {
	return !ps.Empty() && ps.MaxSeverity().Blocking()
}

// Filter returns the problems at or above min.
func (ps *ProblemSet) Filter(min Severity) []*Problem {
	var out []*Problem
	for _, p := range ps.Problems() {
		if p.Severity >= min {
			out = append(out, p)
		}
	}
	return out
}

// Counts returns the number of problems per severity.
func (ps *ProblemSet) Counts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, p := range ps.Problems() {
		counts[p.Severity]++
	}
	return counts
}

// Err returns a *FailedError when the set is blocking, otherwise nil.
func (ps *ProblemSet) Err() error {
	if !ps.Blocking() {
		return nil
	}
	return &FailedError{Problems: ps}
}

// FailedError reports a blocking problem set. It matches
// types.ErrValidationFailed.
type FailedError struct {
	Problems *ProblemSet
}

func (e *FailedError) Error() string {
	blocking := e.Problems.Filter(SeverityError)
	msgs := make([]string, 0, len(blocking))
	for _, p := range blocking {
		msgs = append(msgs, p.String())
	}
	return fmt.Sprintf("validation failed with %d blocking problem(s): %s", len(blocking), strings.Join(msgs, "; "))
}

// Is matches types.ErrValidationFailed.
func (e *FailedError) Is(target error) bool {
	return target == types.ErrValidationFailed
}
