package sparql

import (
	"fmt"
	"strings"

	"github.com/c360studio/sparqled/vocabulary/editor"
)

// PrefixesQuery selects all SHACL prefix declarations, ordered by prefix.
func PrefixesQuery() string {
	return fmt.Sprintf(
		"SELECT ?prefix ?namespace WHERE { [] <%s> ?namespace ; <%s> ?prefix } ORDER BY ?prefix",
		editor.IRI(editor.PrefixNamespace),
		editor.IRI(editor.PrefixName))
}

// ClassesQuery selects the distinct VoID classes, ordered by IRI.
func ClassesQuery() string {
	return fmt.Sprintf(
		"SELECT DISTINCT ?class { [] <%s> ?class } ORDER BY ?class",
		editor.IRI(editor.StatsClass))
}

// PropertiesQuery selects the distinct VoID properties and link
// predicates, ordered by IRI.
func PropertiesQuery() string {
	return fmt.Sprintf(
		"SELECT DISTINCT ?property { [] <%s>|<%s> ?property } ORDER BY ?property",
		editor.IRI(editor.StatsLinkPredicate),
		editor.IRI(editor.StatsProperty))
}

// ExamplesQuery selects executable example queries with their comment or
// label, ordered by resource IRI.
func ExamplesQuery() string {
	queryPaths := make([]string, 0, len(editor.QueryPredicates))
	for _, p := range editor.QueryPredicates {
		queryPaths = append(queryPaths, "<"+editor.IRI(p)+">")
	}

	return fmt.Sprintf(`SELECT DISTINCT ?sq ?comment ?label ?query WHERE {
  ?sq <%s> <%s> ;
    %s ?query .
  OPTIONAL { ?sq <%s> ?comment }
  OPTIONAL { ?sq <%s> ?label }
  FILTER(BOUND(?comment) || BOUND(?label))
} ORDER BY ?sq`,
		editor.IRI(editor.ExampleType), editor.ClassSPARQLExecutable,
		strings.Join(queryPaths, "|"),
		editor.IRI(editor.ExampleComment),
		editor.IRI(editor.ExampleLabel))
}
