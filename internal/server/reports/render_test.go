package reports

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleSheets = []models.Sheet{
	{Name: "Ana", Rows: [][]string{
		{"A", "Ana", "in", "2024-02-01 08:00:00", "Centro", "Vitoria"},
		{"A", "Ana", "out", "2024-02-01 17:00:00", "Praia do Canto, Norte", "Vitoria"},
	}},
	{Name: "Bia/Silva", Rows: nil},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleSheets[0]))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ReportColumns, rows[0])
	assert.Equal(t, "Praia do Canto, Norte", rows[2][4])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Ana.csv", FileName(models.Sheet{Name: "Ana"}))
	assert.Equal(t, "Bia_Silva.csv", FileName(models.Sheet{Name: "Bia/Silva"}))
	assert.Equal(t, "João (2).csv", FileName(models.Sheet{Name: "João (2)"}))
	assert.Equal(t, "sheet.csv", FileName(models.Sheet{}))
}

func TestZip(t *testing.T) {
	b, err := Zip(sampleSheets)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "Ana.csv", zr.File[0].Name)
	assert.Equal(t, "Bia_Silva.csv", zr.File[1].Name)

	f, err := zr.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{models.ReportColumns}, rows)
}
