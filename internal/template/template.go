// Package template loads Neotoma upload templates (YAML or XLSX) and indexes
// their metadata entries: which CSV column feeds which database field, its
// type, and how it groups.
package template

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// Template is a parsed upload template.
type Template struct {
	APIVersion string         `yaml:"apiVersion" json:"apiVersion,omitempty"`
	Kind       string         `yaml:"kind" json:"kind,omitempty"`
	Headers    map[string]any `yaml:"headers" json:"headers,omitempty"`
	Metadata   []Entry        `yaml:"metadata" json:"metadata"`
}

// Index builds the metadata index for the template.
func (t *Template) Index() (*Index, error) {
	if t == nil {
		return nil, &ConfigurationError{Reason: "template is nil"}
	}
	return NewIndex(t.Metadata)
}

// Load reads a template file, choosing the parser from its extension.
func Load(path string) (*Template, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "template: stat %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return LoadYAML(path)
	case ".xls", ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("template: unsupported file type %q (want .yml, .yaml, .xls or .xlsx)", filepath.Ext(path))
	}
}

// LoadYAML reads a YAML template file.
func LoadYAML(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "template: read %s", path)
	}
	return ParseYAML(bytes.NewReader(data))
}

// ParseYAML decodes a YAML template document.
func ParseYAML(r io.Reader) (*Template, error) {
	var t Template
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		if err == io.EOF {
			return nil, &ConfigurationError{Reason: "template document is empty"}
		}
		return nil, eris.Wrap(err, "template: decode yaml")
	}
	return &t, nil
}

// XLSX layout: a sheet named "metadata" (or the first sheet) whose header row
// names entry attributes, one entry per following row. An optional "headers"
// sheet holds key/value rows for apiVersion, kind and free-form headers.
const (
	metadataSheet = "metadata"
	headersSheet  = "headers"
)

// LoadXLSX reads a spreadsheet template.
func LoadXLSX(path string) (*Template, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "template: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, &ConfigurationError{Reason: "xlsx template has no sheets"}
	}

	sheet, ok := f.Sheet[metadataSheet]
	if !ok {
		sheet = f.Sheets[0]
	}
	rows := sheetRows(sheet)
	if len(rows) == 0 {
		return nil, &ConfigurationError{Reason: "xlsx metadata sheet is empty"}
	}

	t := &Template{}
	header := rows[0]
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		e, err := entryFromRow(header, row)
		if err != nil {
			return nil, eris.Wrapf(err, "template: xlsx row %d", i+2)
		}
		t.Metadata = append(t.Metadata, e)
	}

	if hs, ok := f.Sheet[headersSheet]; ok {
		for _, row := range sheetRows(hs) {
			if len(row) < 2 || strings.TrimSpace(row[0]) == "" {
				continue
			}
			key, val := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
			switch key {
			case "apiVersion":
				t.APIVersion = val
			case "kind":
				t.Kind = val
			default:
				if t.Headers == nil {
					t.Headers = make(map[string]any)
				}
				t.Headers[key] = val
			}
		}
	}
	return t, nil
}

func entryFromRow(header, row []string) (Entry, error) {
	var e Entry
	for i, name := range header {
		if i >= len(row) {
			break
		}
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "neotoma":
			e.Path = cell
		case "column":
			e.Column = cell
		case "type":
			e.Type = cell
		case "chronologyname":
			e.ChronologyName = cell
		case "taxonname":
			e.TaxonName = cell
		case "unitcolumn":
			e.UnitColumn = cell
		case "uncertaintyunit":
			e.UncertaintyUnit = cell
		case "uncertaintybasis":
			e.UncertaintyBasis = cell
		case "vocab":
			for _, v := range strings.Split(cell, ",") {
				if v = strings.TrimSpace(v); v != "" {
					e.Vocab = append(e.Vocab, v)
				}
			}
		case "rowwise", "required", "overwrite", "default":
			b, err := parseBool(cell)
			if err != nil {
				return e, eris.Wrapf(err, "column %s", name)
			}
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "rowwise":
				e.Rowwise = b
			case "required":
				e.Required = b
			case "overwrite":
				e.Overwrite = b
			case "default":
				e.Default = b
			}
		}
	}
	return e, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, eris.Errorf("invalid boolean %q", s)
	}
	return b, nil
}

func sheetRows(sheet *xlsx.Sheet) [][]string {
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
