package mapping

import (
	"fmt"
	"regexp"
)

// ValueKind tells the row validator which value rule applies to a field.
type ValueKind string

const (
	KindText     ValueKind = "text"
	KindEmail    ValueKind = "email"
	KindGender   ValueKind = "gender"
	KindDate     ValueKind = "date"
	KindStatus   ValueKind = "status"
	KindIdentity ValueKind = "identity"
)

// Pattern is a predicate over a loose-normalized header.
type Pattern interface {
	Match(header string) bool
}

// PatternFunc adapts a plain function to Pattern.
type PatternFunc func(header string) bool

// Match implements Pattern.
func (f PatternFunc) Match(header string) bool { return f(header) }

// RegexpPattern matches when any of its expressions matches.
type RegexpPattern []*regexp.Regexp

// Patterns compiles case-insensitive expressions. It panics on invalid input and
// is meant for package-level catalog definitions.
func Patterns(exprs ...string) RegexpPattern {
	compiled := make(RegexpPattern, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile("(?i)"+expr))
	}
	return compiled
}

// Match implements Pattern.
func (p RegexpPattern) Match(header string) bool {
	for _, re := range p {
		if re.MatchString(header) {
			return true
		}
	}
	return false
}

// TargetField describes one importable attribute. Label drives the exact pass,
// Pattern the fallback pass; either may be empty.
type TargetField struct {
	Key      string
	Label    string
	Required bool
	Kind     ValueKind
	Pattern  Pattern
}

// Catalog is an ordered, immutable list of target fields. Order is the
// tie-break when several fields could claim the same header.
type Catalog struct {
	name       string
	naturalKey string
	fields     []TargetField
	index      map[string]int
}

// NewCatalog builds a catalog. Keys must be unique and non-empty and the natural
// key must name one of the fields.
func NewCatalog(name, naturalKey string, fields ...TargetField) (*Catalog, error) {
	if name == "" {
		return nil, fmt.Errorf("catalog name is required")
	}
	index := make(map[string]int, len(fields))
	copied := make([]TargetField, len(fields))
	for i, field := range fields {
		if field.Key == "" {
			return nil, fmt.Errorf("catalog %s: field %d has no key", name, i)
		}
		if _, exists := index[field.Key]; exists {
			return nil, fmt.Errorf("catalog %s: duplicate field key %q", name, field.Key)
		}
		if field.Kind == "" {
			field.Kind = KindText
		}
		index[field.Key] = i
		copied[i] = field
	}
	if _, ok := index[naturalKey]; !ok {
		return nil, fmt.Errorf("catalog %s: natural key %q is not a field", name, naturalKey)
	}
	return &Catalog{name: name, naturalKey: naturalKey, fields: copied, index: index}, nil
}

// MustCatalog is NewCatalog for package-level definitions.
func MustCatalog(name, naturalKey string, fields ...TargetField) *Catalog {
	c, err := NewCatalog(name, naturalKey, fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the catalog identifier.
func (c *Catalog) Name() string { return c.name }

// NaturalKey returns the field key used to identify existing members.
func (c *Catalog) NaturalKey() string { return c.naturalKey }

// Fields returns a copy of the fields in catalog order.
func (c *Catalog) Fields() []TargetField {
	out := make([]TargetField, len(c.fields))
	copy(out, c.fields)
	return out
}

// Field looks up a field by key.
func (c *Catalog) Field(key string) (TargetField, bool) {
	i, ok := c.index[key]
	if !ok {
		return TargetField{}, false
	}
	return c.fields[i], true
}

// Required returns the required fields in catalog order.
func (c *Catalog) Required() []TargetField {
	var out []TargetField
	for _, field := range c.fields {
		if field.Required {
			out = append(out, field)
		}
	}
	return out
}
