package mapping

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Mapping assigns target field keys to source headers. Unmapped fields are
// absent. A Mapping is injective: Assign clears any previous owner of a header.
type Mapping map[string]string

// Header returns the header mapped to key.
func (m Mapping) Header(key string) (string, bool) {
	h, ok := m[key]
	return h, ok
}

// Owner returns the field key currently mapped to header.
func (m Mapping) Owner(header string) (string, bool) {
	for key, h := range m {
		if h == header {
			return key, true
		}
	}
	return "", false
}

// Assign maps key to header. Any other field holding the same header loses it.
// An empty header unmaps key.
func (m Mapping) Assign(key, header string) {
	if header == "" {
		delete(m, key)
		return
	}
	for other, h := range m {
		if h == header && other != key {
			delete(m, other)
		}
	}
	m[key] = header
}

// Unassign removes the mapping for key.
func (m Mapping) Unassign(key string) {
	delete(m, key)
}

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Injective reports whether no header is mapped twice.
func (m Mapping) Injective() bool {
	seen := make(map[string]struct{}, len(m))
	for _, h := range m {
		if _, dup := seen[h]; dup {
			return false
		}
		seen[h] = struct{}{}
	}
	return true
}

// Missing returns the required fields of catalog without a mapping, in catalog
// order.
func (m Mapping) Missing(catalog *Catalog) []TargetField {
	var missing []TargetField
	for _, field := range catalog.Required() {
		if h, ok := m[field.Key]; !ok || !Eligible(h) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Validate checks that every key belongs to catalog, every header is one of
// headers and the mapping is injective.
func (m Mapping) Validate(catalog *Catalog, headers []string) error {
	known := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		known[h] = struct{}{}
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := catalog.Field(key); !ok {
			return fmt.Errorf("unknown field %q for catalog %s", key, catalog.Name())
		}
		if _, ok := known[m[key]]; !ok {
			return fmt.Errorf("field %q is mapped to unknown header %q", key, m[key])
		}
	}
	if !m.Injective() {
		return fmt.Errorf("mapping assigns a header to more than one field")
	}
	return nil
}

// MappedField is one row of a mapping rendered in catalog order.
type MappedField struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Required bool    `json:"required"`
	Header   *string `json:"header"`
}

// Describe lists every catalog field with its current header, nil when unmapped.
func (m Mapping) Describe(catalog *Catalog) []MappedField {
	fields := catalog.Fields()
	out := make([]MappedField, 0, len(fields))
	for _, field := range fields {
		entry := MappedField{Key: field.Key, Label: field.Label, Required: field.Required}
		if h, ok := m[field.Key]; ok {
			header := h
			entry.Header = &header
		}
		out = append(out, entry)
	}
	return out
}

// UnmarshalJSON accepts {"field": "Header", "other": null}; null entries are
// left unmapped and duplicate headers resolve in sorted key order.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(Mapping, len(raw))
	for _, key := range keys {
		if raw[key] == nil || !Eligible(*raw[key]) {
			continue
		}
		out.Assign(key, *raw[key])
	}
	*m = out
	return nil
}
