package validate

import (
	"fmt"
	"strings"
)

// Marks prefixed to report lines.
const (
	MarkPass = "✔"
	MarkFail = "✗"
	MarkNote = "?"
)

// Section collects the check lines of one table.
type Section struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
	valid []bool
}

// Pass records a successful check.
func (s *Section) Pass(format string, args ...any) { s.add(MarkPass, true, format, args...) }

// Fail records a failed check.
func (s *Section) Fail(format string, args ...any) { s.add(MarkFail, false, format, args...) }

// Note records an informational line. Notes never fail a section.
func (s *Section) Note(format string, args ...any) { s.add(MarkNote, true, format, args...) }

func (s *Section) add(mark string, ok bool, format string, args ...any) {
	s.Lines = append(s.Lines, mark+" "+fmt.Sprintf(format, args...))
	s.valid = append(s.valid, ok)
}

// Valid is true when the section recorded at least one line and none failed.
func (s *Section) Valid() bool {
	if len(s.valid) == 0 {
		return false
	}
	for _, ok := range s.valid {
		if !ok {
			return false
		}
	}
	return true
}

// Failures counts the failed checks.
func (s *Section) Failures() int {
	n := 0
	for _, ok := range s.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Report is the outcome of validating one file.
type Report struct {
	File     string     `json:"file,omitempty"`
	Sections []*Section `json:"sections"`
}

// Section appends and returns a new named section.
func (r *Report) Section(name string) *Section {
	s := &Section{Name: name}
	r.Sections = append(r.Sections, s)
	return s
}

// Valid is true when every section is valid. An empty report is not valid.
func (r *Report) Valid() bool {
	if len(r.Sections) == 0 {
		return false
	}
	for _, s := range r.Sections {
		if !s.Valid() {
			return false
		}
	}
	return true
}

// Failures counts failed checks across all sections.
func (r *Report) Failures() int {
	n := 0
	for _, s := range r.Sections {
		n += s.Failures()
	}
	return n
}

// String renders the report in the validation log format.
func (r *Report) String() string {
	var b strings.Builder
	if r.Valid() {
		b.WriteString("Valid: TRUE\n")
	} else {
		b.WriteString("Valid: FALSE\n")
	}
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n=== Checking %s ===\n", s.Name)
		for _, l := range s.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
