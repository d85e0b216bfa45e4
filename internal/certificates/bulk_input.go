package certificates

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// BulkRow carries one parsed spreadsheet row into the batch pipeline. Rows
// that failed parsing keep their error so the batch report stays positional.
type BulkRow struct {
	Input CertificateInput
	Err   error
}

// Required header columns. certificate_id cells may still be blank, the
// allocator fills those in.
var requiredColumns = []string{"student_name", "course_name", "issue_date", "certificate_id", "issuing_authority"}

// knownColumns maps a header cell to the input field it fills. Unknown
// columns are ignored.
var knownColumns = map[string]func(*CertificateInput, string){
	"student_name":         func(in *CertificateInput, v string) { in.StudentName = v },
	"course_name":          func(in *CertificateInput, v string) { in.CourseName = v },
	"issue_date":           func(in *CertificateInput, v string) { in.IssueDate = v },
	"certificate_id":       func(in *CertificateInput, v string) { in.CertificateID = v },
	"issuing_authority":    func(in *CertificateInput, v string) { in.IssuingAuthority = v },
	"signature_name":       func(in *CertificateInput, v string) { in.SignatureName = v },
	"signature_image_url":  func(in *CertificateInput, v string) { in.SignatureImageURL = v },
	"logo_url":             func(in *CertificateInput, v string) { in.LogoURL = v },
	"custom_body":          func(in *CertificateInput, v string) { in.CustomBody = v },
	"certificate_title":    func(in *CertificateInput, v string) { in.CertificateTitle = v },
	"certificate_subtitle": func(in *CertificateInput, v string) { in.CertificateSubtitle = v },
	"description_text":     func(in *CertificateInput, v string) { in.DescriptionText = v },
}

// ParseCSV reads a header-first CSV upload into batch rows.
func ParseCSV(r io.Reader) ([]BulkRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns, err := normalizeHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []BulkRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rows = append(rows, BulkRow{Err: fmt.Errorf("malformed csv row: %w", err)})
			continue
		}
		rows = append(rows, rowFromCells(columns, record))
	}
	return rows, nil
}

// ParseXLSX reads the first sheet of an Excel upload into batch rows.
func ParseXLSX(r io.Reader) ([]BulkRow, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}
	columns, err := normalizeHeader(cells[0])
	if err != nil {
		return nil, err
	}

	rows := make([]BulkRow, 0, len(cells)-1)
	for _, record := range cells[1:] {
		if isBlankRow(record) {
			continue
		}
		rows = append(rows, rowFromCells(columns, record))
	}
	return rows, nil
}

// normalizeHeader lowercases and trims header cells and insists on the
// minimum column set.
func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		name = strings.ReplaceAll(name, " ", "_")
		columns[i] = name
		present[name] = true
	}
	for _, required := range requiredColumns {
		if !present[required] {
			return nil, &ValidationError{Field: required, Reason: "column is missing"}
		}
	}
	return columns, nil
}

func rowFromCells(columns, cells []string) BulkRow {
	var input CertificateInput
	for i, column := range columns {
		if i >= len(cells) {
			break
		}
		if set, ok := knownColumns[column]; ok {
			set(&input, strings.TrimSpace(cells[i]))
		}
	}
	return BulkRow{Input: input}
}

func isBlankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
