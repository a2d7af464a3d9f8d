package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/rzbill/keel/pkg/validation"
)

// SeverityColor returns the color used for problems of severity s.
func SeverityColor(s validation.Severity) *color.Color {
	switch s {
	case validation.SeverityFatal:
		return FatalColor
	case validation.SeverityError:
		return ErrorColor
	case validation.SeverityWarning:
		return WarningColor
	default:
		return InfoColor
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// PrintProblems writes the problems at or above min grouped by location,
// followed by a one line summary.
func PrintProblems(w io.Writer, ps *validation.ProblemSet, min validation.Severity) {
	problems := ps.Filter(min)
	if len(problems) == 0 {
		fmt.Fprintln(w, Success("✓ no problems found"))
		return
	}

	var order []string
	byLocation := map[string][]*validation.Problem{}
	for _, p := range problems {
		if _, seen := byLocation[p.Location]; !seen {
			order = append(order, p.Location)
		}
		byLocation[p.Location] = append(byLocation[p.Location], p)
	}

	width := terminalWidth()
	if width > 120 {
		width = 120
	}
	for _, loc := range order {
		name := loc
		if name == "" {
			name = "(document)"
		}
		fmt.Fprintln(w, PathColor.Sprint(name))
		for _, p := range byLocation[loc] {
			sev := SeverityColor(p.Severity).Sprintf("%-7s", p.Severity)
			fmt.Fprintf(w, "  %s %s\n", sev, p.Message)
			if p.Remediation != "" {
				fmt.Fprintf(w, "          %s\n", HintColor.Sprint("hint: "+p.Remediation))
			}
		}
	}
	fmt.Fprintln(w, DimColor.Sprint(strings.Repeat("─", width)))
	fmt.Fprintln(w, Summary(ps))
}

// Summary counts problems per severity, e.g. "1 error, 2 warnings".
func Summary(ps *validation.ProblemSet) string {
	counts := ps.Counts()
	var parts []string
	for _, s := range []validation.Severity{
		validation.SeverityFatal,
		validation.SeverityError,
		validation.SeverityWarning,
		validation.SeverityInfo,
	} {
		n := counts[s]
		if n == 0 {
			continue
		}
		noun := strings.ToLower(s.String())
		if n > 1 {
			noun += "s"
		}
		parts = append(parts, SeverityColor(s).Sprintf("%d %s", n, noun))
	}
	if len(parts) == 0 {
		return Success("no problems")
	}
	return strings.Join(parts, ", ")
}

type jsonProblem struct {
	Severity    string `json:"severity"`
	Location    string `json:"location,omitempty"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// WriteProblemsJSON encodes the problems at or above min as a JSON array.
func WriteProblemsJSON(w io.Writer, ps *validation.ProblemSet, min validation.Severity) error {
	out := []jsonProblem{}
	for _, p := range ps.Filter(min) {
		out = append(out, jsonProblem{
			Severity:    p.Severity.String(),
			Location:    p.Location,
			Message:     p.Message,
			Remediation: p.Remediation,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
