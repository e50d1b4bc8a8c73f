package core

import "errors"

var (
	// ErrConfiguration marks malformed campus documents or settings. It is
	// fatal at start-up.
	ErrConfiguration   = errors.New("configuration error")
	ErrDuplicateVertex = errors.New("duplicate vertex")
	ErrDanglingEdge    = errors.New("edge references unknown hub")

	// ErrRouteNotFound is recovered per entity: the entity stays at its hub
	// and the search is retried at the next boundary crossing.
	ErrRouteNotFound = errors.New("route not found")

	// ErrAllocationExhausted means configured capacities cannot host the
	// requested number of entities.
	ErrAllocationExhausted = errors.New("allocation exhausted")

	// ErrInvalidHubGeometry means no point inside a hub could be sampled
	// within the simulation extent.
	ErrInvalidHubGeometry = errors.New("invalid hub geometry")

	// ErrAgendaPoolExhausted is returned when more motion models are
	// requested than agenda rows were generated.
	ErrAgendaPoolExhausted = errors.New("agenda pool exhausted")
)
