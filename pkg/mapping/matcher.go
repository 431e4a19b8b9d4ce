package mapping

// ConflictFunc is called when the duplicate guard drops a field whose header was
// already claimed by an earlier field. It signals a catalog authoring bug.
type ConflictFunc func(field, header, owner string)

// Matcher computes column mappings. It holds only configuration and is safe for
// concurrent use.
type Matcher struct {
	stoplist   Stoplist
	maxPattern int
	onConflict ConflictFunc
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithStoplist replaces the default stoplist.
func WithStoplist(words []string) Option {
	return func(m *Matcher) {
		m.stoplist = append(Stoplist(nil), words...)
	}
}

// WithMaxPatternHeaderLength overrides the pattern pass length threshold.
func WithMaxPatternHeaderLength(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxPattern = n
		}
	}
}

// WithConflictHook registers a callback for duplicate guard hits.
func WithConflictHook(fn ConflictFunc) Option {
	return func(m *Matcher) {
		m.onConflict = fn
	}
}

// NewMatcher builds a matcher with the default stoplist and threshold.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		stoplist:   DefaultStoplist,
		maxPattern: MaxPatternHeaderLength,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var defaultMatcher = NewMatcher()

// AutoMap runs the default matcher.
func AutoMap(headers []string, catalog *Catalog) Mapping {
	return defaultMatcher.AutoMap(headers, catalog)
}

// AutoMap returns a best-effort injective mapping of catalog fields to headers.
// Exact label matches are claimed first, then pattern matches; both passes walk
// the catalog in order and headers in array order.
func (m *Matcher) AutoMap(headers []string, catalog *Catalog) Mapping {
	result := make(Mapping)
	claimed := make(map[int]bool, len(headers))
	fields := catalog.fields

	for _, field := range fields {
		label := Strict(field.Label)
		if label == "" {
			continue
		}
		for i, header := range headers {
			if claimed[i] || !Eligible(header) {
				continue
			}
			if Strict(header) == label {
				result[field.Key] = header
				claimed[i] = true
				break
			}
		}
	}

	for _, field := range fields {
		if _, mapped := result[field.Key]; mapped || field.Pattern == nil {
			continue
		}
		for i, header := range headers {
			if claimed[i] || !Eligible(header) {
				continue
			}
			if headerLength(header) > m.maxPattern {
				continue
			}
			loose := Loose(header)
			if m.stoplist.Contains(loose) {
				continue
			}
			if field.Pattern.Match(loose) {
				result[field.Key] = header
				claimed[i] = true
				break
			}
		}
	}

	m.dropDuplicates(result, fields)
	return result
}

// Recognize reports the first catalog field that header would match on its own,
// trying every label before any pattern.
func (m *Matcher) Recognize(header string, catalog *Catalog) (TargetField, bool) {
	if !Eligible(header) {
		return TargetField{}, false
	}
	strict := Strict(header)
	for _, field := range catalog.fields {
		if label := Strict(field.Label); label != "" && label == strict {
			return field, true
		}
	}
	if headerLength(header) > m.maxPattern {
		return TargetField{}, false
	}
	loose := Loose(header)
	if m.stoplist.Contains(loose) {
		return TargetField{}, false
	}
	for _, field := range catalog.fields {
		if field.Pattern != nil && field.Pattern.Match(loose) {
			return field, true
		}
	}
	return TargetField{}, false
}

// Stoplist returns the configured stoplist.
func (m *Matcher) Stoplist() Stoplist { return m.stoplist }

// dropDuplicates keeps the first field (catalog order) for each header. Headers
// that repeat verbatim in the sheet are the only way this triggers today.
func (m *Matcher) dropDuplicates(result Mapping, fields []TargetField) {
	owners := make(map[string]string, len(result))
	for _, field := range fields {
		header, ok := result[field.Key]
		if !ok {
			continue
		}
		if owner, taken := owners[header]; taken {
			delete(result, field.Key)
			if m.onConflict != nil {
				m.onConflict(field.Key, header, owner)
			}
			continue
		}
		owners[header] = field.Key
	}
}
