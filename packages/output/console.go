package output

import (
	"fmt"
	"io"
	"os"

	"github.com/apiprobe/apiprobe/packages/runner"
	"github.com/fatih/color"
)

// Formatter renders a run report.
type Formatter interface {
	FormatReport(report *runner.Report) error
	FormatError(err error)
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatReport(report *runner.Report) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s %s\n\n", bold("Run"), report.RunID)

	for _, r := range report.Results {
		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}

		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.ElapsedMs)))

		if !r.Passed && r.Error != "" {
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), r.Error)
		}
	}

	fmt.Fprintf(f.writer, "\nScenarios: ")
	if report.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", report.Passed)))
	}
	if report.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", report.Failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(report.Results))
	fmt.Fprintf(f.writer, "Time:      %dms\n", report.DurationMs)

	if f.verbose {
		fmt.Fprintf(f.writer, "Latency:   p50=%dms p95=%dms p99=%dms\n", report.P50, report.P95, report.P99)
	}
	fmt.Fprintf(f.writer, "\n")
	return nil
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}
