package editor

import "github.com/c360studio/semstreams/vocabulary"

// Prefix declaration predicates.
const (
	// PrefixName is the short prefix label declared by the endpoint.
	PrefixName = "sparql.prefix.name"

	// PrefixNamespace is the namespace IRI bound to a prefix label.
	PrefixNamespace = "sparql.prefix.namespace"
)

// Example query predicates.
const (
	// ExampleType types a resource as an executable SPARQL example.
	ExampleType = "sparql.example.type"

	// ExampleComment is the human-readable description of an example.
	ExampleComment = "sparql.example.comment"

	// ExampleLabel is the short label of an example, used when no comment exists.
	ExampleLabel = "sparql.example.label"

	// ExampleSelect carries SELECT query text.
	ExampleSelect = "sparql.example.select"

	// ExampleAsk carries ASK query text.
	ExampleAsk = "sparql.example.ask"

	// ExampleConstruct carries CONSTRUCT query text.
	ExampleConstruct = "sparql.example.construct"

	// ExampleDescribe carries DESCRIBE query text.
	ExampleDescribe = "sparql.example.describe"
)

// Dataset statistics predicates.
const (
	// StatsClass links a class partition to the class it describes.
	StatsClass = "sparql.stats.class"

	// StatsProperty links a property partition to the property it describes.
	StatsProperty = "sparql.stats.property"

	// StatsLinkPredicate links a linkset to the predicate it uses.
	StatsLinkPredicate = "sparql.stats.link_predicate"
)

// QueryPredicates lists the example predicates that carry query text, in
// the order they are tried.
var QueryPredicates = []string{
	ExampleSelect,
	ExampleAsk,
	ExampleConstruct,
	ExampleDescribe,
}

// IRI returns the standard IRI registered for a predicate, or "" if the
// predicate is unknown.
func IRI(predicate string) string {
	meta := vocabulary.GetPredicateMetadata(predicate)
	if meta == nil {
		return ""
	}
	return meta.StandardIRI
}

func init() {
	vocabulary.Register(PrefixName,
		vocabulary.WithDescription("Prefix label declared for a namespace"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropPrefix))

	vocabulary.Register(PrefixNamespace,
		vocabulary.WithDescription("Namespace IRI bound to a declared prefix"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropNamespace))

	vocabulary.Register(ExampleType,
		vocabulary.WithDescription("Type assertion for executable query examples"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropType))

	vocabulary.Register(ExampleComment,
		vocabulary.WithDescription("Description of an example query, may contain HTML"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.RdfsComment))

	vocabulary.Register(ExampleLabel,
		vocabulary.WithDescription("Short label of an example query"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.RdfsLabel))

	vocabulary.Register(ExampleSelect,
		vocabulary.WithDescription("SELECT query text of an example"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropSelect))

	vocabulary.Register(ExampleAsk,
		vocabulary.WithDescription("ASK query text of an example"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropAsk))

	vocabulary.Register(ExampleConstruct,
		vocabulary.WithDescription("CONSTRUCT query text of an example"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropConstruct))

	vocabulary.Register(ExampleDescribe,
		vocabulary.WithDescription("DESCRIBE query text of an example"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropDescribe))

	vocabulary.Register(StatsClass,
		vocabulary.WithDescription("Class observed in the dataset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropVoidClass))

	vocabulary.Register(StatsProperty,
		vocabulary.WithDescription("Property observed in the dataset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropVoidProperty))

	vocabulary.Register(StatsLinkPredicate,
		vocabulary.WithDescription("Predicate used by a linkset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropVoidLinkPredicate))
}
