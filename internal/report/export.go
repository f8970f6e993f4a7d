package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// Columns is the fixed export layout.
var Columns = []string{"Name", "Email", "Registration ID", "Status", "Timestamp", "Event"}

// Sink receives an ordered table of rows under a destination name. The file
// format is the sink's business.
type Sink interface {
	WriteTable(ctx context.Context, destination string, columns []string, rows [][]string) error
}

// Rows flattens records into the Columns layout.
func Rows(records []AttendanceRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		ts := "Not Attended"
		if r.Timestamp != nil {
			ts = r.Timestamp.UTC().Format(time.RFC3339)
		}
		event := r.EventName
		if event == "" {
			event = "N/A"
		}
		rows = append(rows, []string{r.Name, r.Email, r.RegistrationID, string(r.Status), ts, event})
	}
	return rows
}

func Export(ctx context.Context, sink Sink, records []AttendanceRecord, destination string) error {
	if err := sink.WriteTable(ctx, destination, Columns, Rows(records)); err != nil {
		return fmt.Errorf("export %s: %w", destination, err)
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// ExportName builds the report file name for an event name, or for all
// events when eventName is empty. The result only contains [a-z0-9-].
func ExportName(eventName string) string {
	if strings.TrimSpace(eventName) == "" {
		eventName = "All Events"
	}
	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(eventName), "-"), "-")
	if slug == "" {
		slug = "event"
	}
	return "attendance-report-" + slug
}

// CSVSink writes the table as CSV to W, ignoring the destination name.
type CSVSink struct {
	W io.Writer
}

func (s CSVSink) WriteTable(_ context.Context, _ string, columns []string, rows [][]string) error {
	w := csv.NewWriter(s.W)
	if err := w.Write(columns); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}
