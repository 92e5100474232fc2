package editor

// Standard namespaces used by endpoint metadata.
const (
	// SHACL is the Shapes Constraint Language namespace.
	SHACL = "http://www.w3.org/ns/shacl#"

	// VoID is the Vocabulary of Interlinked Datasets namespace.
	VoID = "http://rdfs.org/ns/void#"

	// RDF is the RDF syntax namespace.
	RDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// RDFS is the RDF Schema namespace.
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
)

// Class IRIs.
const (
	// ClassSPARQLExecutable types resources that carry an executable query.
	ClassSPARQLExecutable = SHACL + "SPARQLExecutable"
)

// Property IRIs.
const (
	PropPrefix    = SHACL + "prefix"
	PropNamespace = SHACL + "namespace"

	PropSelect    = SHACL + "select"
	PropAsk       = SHACL + "ask"
	PropConstruct = SHACL + "construct"
	PropDescribe  = SHACL + "describe"

	PropVoidClass         = VoID + "class"
	PropVoidProperty      = VoID + "property"
	PropVoidLinkPredicate = VoID + "linkPredicate"

	PropType = RDF + "type"
)
