package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/natserract/sfclient/pkg/salesforce"
)

const (
	outputJSON  = "json"
	outputTable = "table"
)

// maxCellWidth is the display width long values are snipped to in table output.
const maxCellWidth = 60

func writeRecords(w io.Writer, records []salesforce.Record, format string) error {
	switch format {
	case outputJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case outputTable:
		renderTable(w, records)
		return nil
	default:
		return fmt.Errorf("unknown output format %q, want %s or %s", format, outputJSON, outputTable)
	}
}

func renderTable(w io.Writer, records []salesforce.Record) {
	columns := recordColumns(records)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, record := range records {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = cellValue(record[c])
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(records))})

	t.Render()
}

// recordColumns is the sorted union of field names, without the
// attributes metadata Salesforce adds to every record.
func recordColumns(records []salesforce.Record) []string {
	seen := map[string]struct{}{}
	for _, record := range records {
		for key := range record {
			if key == "attributes" {
				continue
			}
			seen[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

func cellValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(b)
		}
	default:
		s = fmt.Sprintf("%v", val)
	}
	return text.Snip(s, maxCellWidth, "...")
}
