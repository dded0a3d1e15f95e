package output

import (
	"fmt"
	"io"
	"os"

	"github.com/apiprobe/apiprobe/packages/runner"
)

// TAPFormatter renders results in the Test Anything Protocol format.
type TAPFormatter struct {
	writer io.Writer
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatReport(report *runner.Report) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(report.Results))

	for i, r := range report.Results {
		if r.Passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", i+1, r.Name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", i+1, r.Name)
		if r.Error != "" {
			fmt.Fprintf(f.writer, "  ---\n  message: %q\n  ...\n", r.Error)
		}
	}

	return nil
}

func (f *TAPFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "Bail out! %v\n", err)
}
