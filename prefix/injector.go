package prefix

import (
	"regexp"
)

// Adder receives prefix declarations to add to a query buffer.
type Adder interface {
	AddPrefixes(prefixes map[string]string)
}

// Injector adds PREFIX declarations for prefixes a query uses but does not
// declare.
type Injector struct {
	table *Table
}

// NewInjector creates an injector reading from t.
func NewInjector(t *Table) *Injector {
	return &Injector{table: t}
}

// IsDeclared reports whether buffer declares key bound to exactly iri.
func IsDeclared(buffer, key, iri string) bool {
	re := regexp.MustCompile(`PREFIX\s+` + regexp.QuoteMeta(key) + `\s?:\s?<` + regexp.QuoteMeta(iri))
	return re.MatchString(buffer)
}

// IsUsed reports whether buffer contains "key:" at the start or after
// whitespace, "(", "|", "/" or a non-breaking space.
func IsUsed(buffer, key string) bool {
	re := regexp.MustCompile(`(?:^|[\s(|/\x{00a0}])` + regexp.QuoteMeta(key) + `:`)
	return re.MatchString(buffer)
}

// Missing returns, in ascending prefix order, the entries used in buffer
// but not declared with their exact IRI.
func (i *Injector) Missing(buffer string) []Entry {
	var missing []Entry
	for _, e := range i.table.Entries() {
		if IsUsed(buffer, e.Prefix) && !IsDeclared(buffer, e.Prefix, e.Namespace) {
			missing = append(missing, e)
		}
	}
	return missing
}

// Inject hands each missing declaration to dst, one key at a time in
// ascending order, and returns the keys it added.
func (i *Injector) Inject(buffer string, dst Adder) []string {
	missing := i.Missing(buffer)
	added := make([]string, 0, len(missing))
	for _, e := range missing {
		dst.AddPrefixes(map[string]string{e.Prefix: e.Namespace})
		added = append(added, e.Prefix)
	}
	return added
}
