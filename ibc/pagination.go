package ibc

import "math"

// PageRequest is bit-compatible with the underlying protocol's pagination
// message. Key and Offset are mutually exclusive; CountTotal is honored
// only when Offset is used.
type PageRequest struct {
	Key        []byte
	Offset     uint64
	Limit      uint64
	CountTotal bool
	Reverse    bool
}

// AllPages returns a PageRequest that asks for every page in one shot.
func AllPages() PageRequest {
	return PageRequest{Limit: math.MaxUint64}
}

// PageResponse carries pagination continuation state back from a paginated
// query: the next key to pass as PageRequest.Key, and the total count when
// the request asked for one.
type PageResponse struct {
	NextKey []byte
	Total   uint64
}

// IncludeProof selects whether a query should also return a membership
// proof alongside its result.
type IncludeProof bool

const (
	WithProof    IncludeProof = true
	WithoutProof IncludeProof = false
)
