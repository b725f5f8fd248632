// Package export renders the responses of a form as CSV for spreadsheet tools.
package export

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
)

const (
	// DefaultDateLayout renders dates as day. month. year hour:minute.
	DefaultDateLayout = "02. 01. 2006 15:04"

	bom       = "\ufeff"
	rowEnd    = "\r\n"
	fileTitle = "_odpovedi.csv"
)

// Exporter writes CSV exports. The zero value uses DefaultDateLayout in UTC.
type Exporter struct {
	DateLayout string
	Location   *time.Location
}

// New returns an exporter formatting dates with layout in loc.
func New(layout string, loc *time.Location) *Exporter {
	return &Exporter{DateLayout: layout, Location: loc}
}

// Header returns the header row: "#", "Datum", then every question title in order.
func Header(f *entity.Form) []string {
	questions := f.Questions()
	row := make([]string, 0, 2+len(questions))
	row = append(row, "#", "Datum")

	for _, q := range questions {
		row = append(row, q.Title)
	}

	return row
}

// Rows returns one row per response: 1-based index, formatted date, then each resolved answer.
func (e *Exporter) Rows(f *entity.Form) [][]string {
	questions := f.Questions()
	responses := f.Responses()
	rows := make([][]string, 0, len(responses))

	for i, r := range responses {
		row := make([]string, 0, 2+len(questions))
		row = append(row, strconv.Itoa(i+1), e.FormatDate(r.SubmittedAt))

		for _, q := range questions {
			row = append(row, entity.ResolveAnswer(r, q.ID()).String())
		}

		rows = append(rows, row)
	}

	return rows
}

// Write streams the export of f to w: a UTF-8 byte order mark, then CRLF separated rows.
func (e *Exporter) Write(w io.Writer, f *entity.Form) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(bom); err != nil {
		return err
	}

	rows := append([][]string{Header(f)}, e.Rows(f)...)
	for i, row := range rows {
		if i > 0 {
			if _, err := bw.WriteString(rowEnd); err != nil {
				return err
			}
		}

		for j, field := range row {
			if j > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(Escape(field)); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// Export returns the full export of f.
func (e *Exporter) Export(f *entity.Form) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Escape quotes a field containing a comma, a double quote or a line break,
// doubling embedded quotes. Other fields are returned unchanged.
func Escape(field string) string {
	if !strings.ContainsAny(field, ",\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// FileName is the download name of the export of f.
func FileName(f *entity.Form) string {
	return f.Title + fileTitle
}

// FormatDate renders t with the exporter layout and location; a zero time is empty.
func (e *Exporter) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	layout := e.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}

	return t.In(loc).Format(layout)
}
