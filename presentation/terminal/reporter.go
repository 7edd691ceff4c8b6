// Package terminal prints scenario progress and the final summary.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"ui_harness/domain/entities"
)

// Reporter writes one line per step and a PASS/FAIL line per scenario
type Reporter struct {
	out   io.Writer
	mu    sync.Mutex
	total int

	passStyle lipgloss.Style
	failStyle lipgloss.Style
	dimStyle  lipgloss.Style
	boldStyle lipgloss.Style
}

// NewReporter - creates a reporter writing to out; color false forces plain text
func NewReporter(out io.Writer, color bool) *Reporter {
	r := lipgloss.NewRenderer(out)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Reporter{
		out: out,

		passStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}).
			Bold(true),
		failStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true),
		dimStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		boldStyle: r.NewStyle().Bold(true),
	}
}

func (r *Reporter) ScenarioStarted(sc entities.Scenario) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = len(sc.Steps)

	line := "▶ " + r.boldStyle.Render(sc.Name)
	if sc.Description != "" {
		line += r.dimStyle.Render(" - " + sc.Description)
	}
	fmt.Fprintln(r.out, line)
}

func (r *Reporter) StepStarted(index int, step entities.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "  [%d/%d] %s\n", index+1, r.total, step.Describe())
}

func (r *Reporter) ArtifactSaved(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.dimStyle.Render("        saved "+path))
}

func (r *Reporter) ScenarioFinished(result entities.ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	took := result.Duration().Round(time.Millisecond)
	if result.Passed() {
		fmt.Fprintf(r.out, "%s %s (%s)\n\n", r.passStyle.Render("PASS"), result.Scenario, took)
		return
	}
	fmt.Fprintf(r.out, "%s %s (%s)\n      %s\n\n", r.failStyle.Render("FAIL"), result.Scenario, took, describeFailure(result.Failure))
}

// Summary writes the outcome of every result, without timings
func (r *Reporter) Summary(results []entities.ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	width := 0
	for _, res := range results {
		width = max(width, len(res.Scenario))
	}

	fmt.Fprintln(r.out, r.boldStyle.Render("Summary"))
	passed := 0
	for _, res := range results {
		name := res.Scenario + strings.Repeat(" ", width-len(res.Scenario))
		if res.Passed() {
			passed++
			fmt.Fprintf(r.out, "  %s  %s\n", r.passStyle.Render("PASS"), strings.TrimRight(name, " "))
			continue
		}
		fmt.Fprintf(r.out, "  %s  %s  %s\n", r.failStyle.Render("FAIL"), name, describeFailure(res.Failure))
		for _, a := range res.Artifacts {
			fmt.Fprintf(r.out, "        %s\n", r.dimStyle.Render("artifact: "+a))
		}
	}
	fmt.Fprintf(r.out, "%d passed, %d failed\n", passed, len(results)-passed)
}

func describeFailure(f *entities.Failure) string {
	if f == nil {
		return "failed"
	}
	if f.StepIndex < 0 {
		return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
	}
	return fmt.Sprintf("%s at step %d (%s): %s", f.Kind, f.StepIndex+1, f.StepDescription, f.Reason)
}
