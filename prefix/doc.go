// Package prefix manages the namespace prefix table shown by the query
// editor and injects missing PREFIX declarations into query text.
//
// The table starts from a fixed set of defaults (Defaults) and is merged
// with the prefixes an endpoint declares through SHACL (Loader). Entries
// from the endpoint overwrite defaults with the same key.
//
// The Injector is a heuristic, not a SPARQL parser: a prefix is considered
// "in use" when "key:" follows whitespace, "(", "/", "|", a non-breaking
// space, or the start of the buffer. A prefix mentioned only inside a
// literal or a comment is therefore also reported as used.
package prefix
