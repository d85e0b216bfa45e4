package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []map[string]string {
	return []map[string]string{
		{
			"certificate_id": "NH-2026-00001",
			"student_name":   "Ada Lovelace",
			"course_name":    "CCNA",
			"issue_date":     "2026-08-31",
			"status":         "generated",
			"revoked":        "no",
		},
		{
			"certificate_id": "NH-2026-00002",
			"student_name":   "Grace Hopper",
			"course_name":    "CCNP",
			"issue_date":     "2026-08-31",
			"status":         "generated",
			"revoked":        "yes",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	out := buf.String()
	assert.Contains(t, out, "Certificate ID,Student Name,Course Name,Issue Date,Status,Revoked")
	assert.Contains(t, out, "NH-2026-00001,Ada Lovelace,CCNA,2026-08-31,generated,no")
	assert.Contains(t, out, "NH-2026-00002,Grace Hopper,CCNP,2026-08-31,generated,yes")
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleRows()))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RegisterLabels(), rows[0])
	assert.Equal(t, "Ada Lovelace", rows[1][1])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, "Certificate Register", sampleRows()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
