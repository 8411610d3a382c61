package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gameserverctl/internal/models"
)

// OutputFormatType defines the format types for the status report.
type OutputFormatType string

const (
	// OutputFormatTypeJSON represents JSON output format
	OutputFormatTypeJSON OutputFormatType = "JSON"
	// OutputFormatTypeTABLE represents table output format
	OutputFormatTypeTABLE OutputFormatType = "TABLE"
)

// ParseOutputFormat converts a flag value into an OutputFormatType. An empty
// value selects the table format.
func ParseOutputFormat(format string) (OutputFormatType, error) {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "", string(OutputFormatTypeTABLE):
		return OutputFormatTypeTABLE, nil
	case string(OutputFormatTypeJSON):
		return OutputFormatTypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintReport writes the status report to w using the specified output format.
// Supported formats: "json" (machine-readable) and "table" (human-friendly).
func PrintReport(w io.Writer, report *models.StatusReport, outputFormat OutputFormatType) error {
	if report == nil {
		return fmt.Errorf("no status report to print")
	}

	switch outputFormat {
	case OutputFormatTypeJSON:
		return printJSONReport(w, report)
	case OutputFormatTypeTABLE:
		return printTableReport(w, report)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// printJSONReport prints the report in JSON format
func printJSONReport(w io.Writer, report *models.StatusReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTableReport prints the report in a human-friendly table format
func printTableReport(w io.Writer, report *models.StatusReport) error {
	writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(writer, "INSTANCE ID\tTAG\tPOWER STATE\tGAME\tCONDITION")
	fmt.Fprintln(writer, "-----------\t---\t-----------\t----\t---------")
	fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
		report.InstanceID,
		report.Tag,
		formatValueForTable(string(report.PowerState)),
		formatGameRunning(report.GameRunning),
		strings.ToUpper(string(report.Condition)),
	)

	fmt.Fprintln(writer, "")
	fmt.Fprintln(writer, report.Message)

	return writer.Flush()
}

func formatGameRunning(running *bool) string {
	switch {
	case running == nil:
		return "-"
	case *running:
		return "online"
	default:
		return "offline"
	}
}

// formatValueForTable formats values for better display in the table
func formatValueForTable(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

// DefaultPrinter is the default implementation of the report printer.
// A nil Out writes to stdout.
type DefaultPrinter struct {
	Out io.Writer
}

// PrintReport implements the printer interface
func (p DefaultPrinter) PrintReport(report *models.StatusReport, format OutputFormatType) error {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	return PrintReport(out, report, format)
}
