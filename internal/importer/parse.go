package importer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned when a file has a header but no data rows.
var ErrEmptyFile = eris.New("importer: file has no data rows")

// Sheet is a parsed export: a header row and the data rows below it.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// ParseCSV reads a UTF-8 CSV with a header row. A leading byte order mark is
// stripped and blank lines are skipped. Rows may be shorter or longer than
// the header.
func ParseCSV(r io.Reader) (*Sheet, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	return newSheet(records)
}

// ParseXLSX reads the first sheet of an XLSX workbook, header row first.
func ParseXLSX(data []byte) (*Sheet, error) {
	records, err := readXLSX(data)
	if err != nil {
		return nil, err
	}
	return newSheet(records)
}

// Parse picks the parser from the file name's extension. Anything that is
// not .xlsx is read as CSV.
func Parse(name string, r io.Reader) (*Sheet, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: read %s", name)
		}
		return ParseXLSX(data)
	}
	return ParseCSV(r)
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open file")
	}
	defer f.Close() //nolint:errcheck

	return Parse(path, f)
}

func newSheet(records [][]string) (*Sheet, error) {
	var rows [][]string
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, eris.New("importer: file has no header row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}
	return &Sheet{Headers: headers, Rows: rows[1:]}, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
