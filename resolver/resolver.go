package resolver

import (
	"github.com/effectus/schemadraft/draft"
	"github.com/effectus/schemadraft/schema"
)

// Resolution is the outcome of resolving a navigation context
type Resolution struct {
	ActiveUID string `json:"activeUid,omitempty" yaml:"activeUid,omitempty"`
	IsValid   bool   `json:"isValid" yaml:"isValid"`
}

// Resolve looks nav up in the catalog matching its kind. Nothing is valid
// while the catalogs are still loading.
func Resolve(nav NavContext, state draft.State) Resolution {
	res := Resolution{ActiveUID: nav.UID}
	if state.IsLoading || nav.UID == "" {
		return res
	}
	catalog, ok := state.Catalog(nav.Kind)
	if !ok {
		return res
	}
	res.IsValid = catalog.Has(nav.UID)
	return res
}

// ShouldRedirect reports whether the builder has to leave nav: loading is
// over and nav does not name an existing schema.
func ShouldRedirect(nav NavContext, state draft.State) bool {
	if state.IsLoading {
		return false
	}
	return !Resolve(nav, state).IsValid
}

// RedirectTarget is the content type the builder falls back to: the
// smallest content-type uid in plain string order. It returns false when
// there is no content type to go to.
func RedirectTarget(state draft.State) (NavContext, bool) {
	if len(state.ContentTypes) == 0 {
		return NavContext{}, false
	}
	return ContentType(state.ContentTypes.Keys()[0]), true
}

// Record returns a copy of the record nav points at, if it resolves
func Record(nav NavContext, state draft.State) (schema.Record, bool) {
	if !Resolve(nav, state).IsValid {
		return schema.Record{}, false
	}
	catalog, _ := state.Catalog(nav.Kind)
	return catalog.Get(nav.UID)
}
