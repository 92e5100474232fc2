// Package editor provides vocabulary predicates for SPARQL endpoint metadata
// consumed by the query editor.
//
// Endpoints describe themselves with three standard vocabularies:
//   - SHACL (sh:prefix, sh:namespace) for declared namespace prefixes
//   - SHACL-SPARQL (sh:SPARQLExecutable, sh:select, ...) for example queries
//   - VoID (void:class, void:property, void:linkPredicate) for dataset statistics
//     that feed class and property autocompletion
//
// # Semstreams Integration
//
// Predicates follow the semstreams three-level dotted notation
// (domain.category.property) and are registered in init() with their
// standard IRI, so query builders resolve IRIs through
// vocabulary.GetPredicateMetadata instead of hard-coding them:
//
//	iri := editor.IRI(editor.PrefixNamespace)
//	// "http://www.w3.org/ns/shacl#namespace"
package editor
