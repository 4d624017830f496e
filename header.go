package rpccore

import "google.golang.org/grpc/metadata"

// HeaderMap is an ordered multimap of (name, value) pairs with ASCII
// case-insensitive name comparison and support for binary values on names
// ending in "-bin". It is google.golang.org/grpc/metadata.MD directly: every
// repo in the retrieved pack that touches gRPC headers threads this type
// through rather than reinventing it.
type HeaderMap = metadata.MD

// mergeHeaders merges preferred over base: on key conflict preferred wins.
// This is the merge rule used throughout ErrorProcessor (call-context
// trailers take precedence over delegate-supplied trailers) — note the
// argument order is "loser, winner" to match metadata.Join's left-to-right
// append semantics combined with a de-dup pass.
func mergeHeaders(base, preferred HeaderMap) HeaderMap {
	if len(base) == 0 {
		return preferred.Copy()
	}
	if len(preferred) == 0 {
		return base.Copy()
	}
	out := base.Copy()
	for k, v := range preferred {
		out[k] = v
	}
	return out
}
