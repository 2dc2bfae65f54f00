// Package rpctypes provides generic, typed wrappers over the wire
// envelopes: a closed-namespace method convention, typed request/response
// pairs, variant-walk decoding across a registered set of request types,
// and the Initialize handshake pair.
package rpctypes

// file: rpctypes/namespace.go

// Namespace identifies one of the method groups a server multiplexes
// across. Wire methods are always encoded as "namespace_method".
type Namespace string

// NamespaceSeparator joins a request's namespace and method name on the
// wire, e.g. "echo_ping".
const NamespaceSeparator = "_"

// NamespaceSet is the closed set of namespaces a server or client
// recognizes, the Go analogue of validating a namespace string against a
// known enum before trusting it.
type NamespaceSet map[Namespace]struct{}

// NewNamespaceSet builds a NamespaceSet from the given namespaces.
func NewNamespaceSet(namespaces ...Namespace) NamespaceSet {
	set := make(NamespaceSet, len(namespaces))
	for _, n := range namespaces {
		set[n] = struct{}{}
	}
	return set
}

// Contains reports whether namespace is a member of the set.
func (s NamespaceSet) Contains(namespace Namespace) bool {
	_, ok := s[namespace]
	return ok
}

// TryParse reports whether str names a namespace in the set, returning
// it typed if so.
func (s NamespaceSet) TryParse(str string) (Namespace, bool) {
	n := Namespace(str)
	return n, s.Contains(n)
}
