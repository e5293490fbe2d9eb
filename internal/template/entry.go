package template

import (
	"strings"
)

// Kind is the scalar type a mapping entry coerces its column to.
type Kind uint8

const (
	// KindRaw passes cell strings through untouched (unknown or missing type).
	KindRaw Kind = iota
	KindString
	KindDate
	KindInt
	KindFloat
	KindCoordinates
)

// ParseKind maps a template type name to a Kind. Unknown names yield KindRaw.
func ParseKind(s string) Kind {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "") {
	case "string", "str":
		return KindString
	case "date":
		return KindDate
	case "int", "integer":
		return KindInt
	case "float", "number":
		return KindFloat
	case "coordinates(lat,long)", "coordinates":
		return KindCoordinates
	default:
		return KindRaw
	}
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindCoordinates:
		return "coordinates (lat,long)"
	default:
		return "raw"
	}
}

// GroupKind names the nested entity collection a grouped field folds into.
type GroupKind uint8

const (
	GroupNone GroupKind = iota
	GroupChronologies
	GroupSampleAges
)

// Key is the output key of the group collection.
func (g GroupKind) Key() string {
	switch g {
	case GroupChronologies:
		return "chronologies"
	case GroupSampleAges:
		return "sampleages"
	default:
		return ""
	}
}

// Role decides how a resolved value is shaped into the output mapping.
type Role uint8

const (
	// RoleFlat writes the value straight under the field name.
	RoleFlat Role = iota
	// RoleNotes accumulates labeled free text from several columns.
	RoleNotes
	// RoleGrouped nests the value under a chronology or sample-age name, or
	// writes it top-level when the entry names no chronology.
	RoleGrouped
	// RoleTaxon nests the value under the entry's taxon name.
	RoleTaxon
)

func (r Role) String() string {
	switch r {
	case RoleNotes:
		return "notes"
	case RoleGrouped:
		return "grouped"
	case RoleTaxon:
		return "taxon"
	default:
		return "flat"
	}
}

// Entry is one line of a template's metadata: where a CSV column lands in
// Neotoma and how its cells are typed.
type Entry struct {
	Path             string   `yaml:"neotoma" json:"neotoma"`
	Column           string   `yaml:"column" json:"column,omitempty"`
	Type             string   `yaml:"type" json:"type,omitempty"`
	Rowwise          bool     `yaml:"rowwise" json:"rowwise,omitempty"`
	Required         bool     `yaml:"required" json:"required,omitempty"`
	Overwrite        bool     `yaml:"overwrite" json:"overwrite,omitempty"`
	ChronologyName   string   `yaml:"chronologyname" json:"chronologyname,omitempty"`
	TaxonName        string   `yaml:"taxonname" json:"taxonname,omitempty"`
	Default          bool     `yaml:"default" json:"default,omitempty"`
	UnitColumn       string   `yaml:"unitcolumn" json:"unitcolumn,omitempty"`
	UncertaintyUnit  string   `yaml:"uncertaintyunit" json:"uncertaintyunit,omitempty"`
	UncertaintyBasis string   `yaml:"uncertaintybasis" json:"uncertaintybasis,omitempty"`
	Vocab            []string `yaml:"vocab" json:"vocab,omitempty"`

	kind  Kind
	role  Role
	group GroupKind
}

// Kind returns the parsed scalar type.
func (e Entry) Kind() Kind { return e.kind }

// Role returns the shaping role computed at load.
func (e Entry) Role() Role { return e.role }

// Group returns the nested collection for grouped entries.
func (e Entry) Group() GroupKind { return e.group }

// Field returns the final segment of the entry's Neotoma path.
func (e Entry) Field() string {
	return LastSegment(e.Path)
}

// prepare derives kind, group and role from the declared attributes.
func (e *Entry) prepare() {
	e.kind = ParseKind(e.Type)
	e.group = groupOf(e.Path)

	switch {
	case e.group != GroupNone && e.ChronologyName != "":
		e.role = RoleGrouped
	case e.Field() == "notes":
		e.role = RoleNotes
	case e.group != GroupNone:
		e.role = RoleGrouped
	case e.TaxonName != "":
		e.role = RoleTaxon
	default:
		e.role = RoleFlat
	}
}

func groupOf(path string) GroupKind {
	for _, seg := range strings.Split(path, ".") {
		switch seg {
		case "chronologies":
			return GroupChronologies
		case "sampleages":
			return GroupSampleAges
		}
	}
	return GroupNone
}

// LastSegment returns the text after the final dot of a dotted path.
func LastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// NormalizePrefix ensures a table prefix ends with the path separator.
func NormalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, ".") {
		return prefix
	}
	return prefix + "."
}
