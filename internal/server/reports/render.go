// Package reports renders report sheets as CSV and archives them to object
// storage.
package reports

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// WriteCSV writes sheet with the report header row.
func WriteCSV(w io.Writer, sheet models.Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.ReportColumns); err != nil {
		return err
	}
	if err := cw.WriteAll(sheet.Rows); err != nil {
		return err
	}
	return cw.Error()
}

var unsafeName = regexp.MustCompile(`[^\pL\pN _().-]+`)

// FileName is the archive entry name for a sheet.
func FileName(sheet models.Sheet) string {
	name := unsafeName.ReplaceAllString(sheet.Name, "_")
	if name == "" {
		name = "sheet"
	}
	return name + ".csv"
}

// Zip bundles one CSV file per sheet.
func Zip(sheets []models.Sheet) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, sheet := range sheets {
		f, err := zw.Create(FileName(sheet))
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", sheet.Name, err)
		}
		if err := WriteCSV(f, sheet); err != nil {
			return nil, fmt.Errorf("zip %s: %w", sheet.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
