// Package draft holds the in-memory draft state of the schema builder and
// the transition function that applies edit commands to it.
//
// State is a value. Apply never mutates the state it is given; every
// command produces a fresh state or is rejected and returns its input
// unchanged. Store owns the current state for a session and is the only
// writer.
package draft

import "github.com/effectus/schemadraft/schema"

// State is the authoritative draft state of one builder session
type State struct {
	Components   schema.Catalog
	ContentTypes schema.Catalog

	// IsLoading stays true until the first successful catalog load
	IsLoading bool

	// IsLoadingForDataToBeSet stays true until a draft has been seeded
	IsLoadingForDataToBeSet bool

	// InitialData is the unedited snapshot of the open schema
	InitialData schema.Record

	// ModifiedData is the live editable copy of the open schema
	ModifiedData schema.Record

	// ContentTypesRevision increases every time the content-type catalog
	// is replaced
	ContentTypesRevision uint64
}

// InitialState returns the state of a session before anything was loaded
func InitialState() State {
	return State{
		Components:              schema.Catalog{},
		ContentTypes:            schema.Catalog{},
		IsLoading:               true,
		IsLoadingForDataToBeSet: true,
	}
}

// Catalog returns the catalog that holds schemas of the given kind
func (s State) Catalog(kind schema.Kind) (schema.Catalog, bool) {
	switch kind {
	case schema.KindContentType:
		return s.ContentTypes, true
	case schema.KindComponent:
		return s.Components, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy that shares no maps with s
func (s State) Clone() State {
	out := s
	out.Components = s.Components.Clone()
	out.ContentTypes = s.ContentTypes.Clone()
	out.InitialData = s.InitialData.Clone()
	out.ModifiedData = s.ModifiedData.Clone()
	return out
}
