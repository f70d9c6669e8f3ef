package jpi

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteCSV writes one flight's decoded table to w: an INDEX column
// prepended ahead of the decoded headers, then a trailing tach-summary
// line. Rows are joined by hand (commas, the same separator flight.go's
// ReadRecord uses, and a "\r\n" line ending) rather than through encoding/csv:
// formatInteger deliberately emits a leading space (" 245") on every
// non-negative scale-1 field to preserve the source's own CSV convention,
// and csv.Writer's QUOTE_MINIMAL-alike quoting rule treats a leading space
// as needing quotes, which a Python csv.writer-produced golden file never
// does. writeCSVField reproduces Python's QUOTE_MINIMAL instead: quote only
// when a field actually contains the delimiter, a quote, or a line break.
func WriteCSV(w io.Writer, table *FlightTable) error {
	bw := bufio.NewWriter(w)

	headers := make([]string, 0, len(table.Headers)+1)
	headers = append(headers, "INDEX")
	headers = append(headers, table.Headers...)
	writeCSVLine(bw, headers)

	for i, row := range table.Rows {
		record := make([]string, 0, len(headers))
		record = append(record, fmt.Sprintf("%d", i+1))
		record = append(record, row...)
		writeCSVLine(bw, record)
	}

	tachStart, tachEnd := tachBounds(table)
	fmt.Fprintf(bw, "Engine - Tach Start = %.1f,Tach End = %.1f,Tach Duration = %.1f\r\n",
		tachStart, tachEnd, round1(tachEnd-tachStart))

	return bw.Flush()
}

// writeCSVLine joins fields with commas and a trailing CRLF, quoting only
// the fields that need it.
func writeCSVLine(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		writeCSVField(bw, f)
	}
	bw.WriteString("\r\n")
}

// writeCSVField quotes a field only when it contains the delimiter, a
// quote character, or a line break — Python's csv.writer QUOTE_MINIMAL
// rule, which (unlike encoding/csv's fieldNeedsQuotes) never quotes a
// field merely for starting with a space.
func writeCSVField(bw *bufio.Writer, field string) {
	if !strings.ContainsAny(field, ",\"\r\n") {
		bw.WriteString(field)
		return
	}
	bw.WriteByte('"')
	bw.WriteString(strings.ReplaceAll(field, `"`, `""`))
	bw.WriteByte('"')
}

func tachBounds(table *FlightTable) (start, end float64) {
	hrsCol := indexOfHeader(table.Headers, "HRS")
	if hrsCol < 0 {
		return 0, 0
	}
	if v, ok := firstNumeric(table.Rows, hrsCol, true); ok {
		start = v
	}
	if v, ok := firstNumeric(table.Rows, hrsCol, false); ok {
		end = v
	}
	return start, end
}
