package models

// ReportColumns is the header row of every report sheet.
var ReportColumns = []string{"Matricula", "Name", "Type", "Timestamp", "Neighborhood", "City"}

// Sheet is one table of a report.
type Sheet struct {
	Name string
	Rows [][]string
}
