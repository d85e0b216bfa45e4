// Package export writes the certificate register in the download formats the
// admin screens offer.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// RegisterColumns is the column order shared by every export format.
func RegisterColumns() []string {
	return []string{"certificate_id", "student_name", "course_name", "issue_date", "status", "revoked"}
}

// RegisterLabels returns the human-readable headers matching RegisterColumns.
func RegisterLabels() []string {
	return []string{"Certificate ID", "Student Name", "Course Name", "Issue Date", "Status", "Revoked"}
}

// WriteCSV streams register rows as CSV with a header row.
func WriteCSV(w io.Writer, rows []map[string]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(RegisterLabels()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	columns := RegisterColumns()
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
