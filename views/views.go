// Package views derives the read-only projections the builder renders from
// a draft snapshot.
package views

import (
	"sort"

	"github.com/effectus/schemadraft/draft"
	"github.com/effectus/schemadraft/resolver"
	"github.com/effectus/schemadraft/schema"
)

// NavItem is one entry of a navigation list
type NavItem struct {
	UID  string `json:"uid" yaml:"uid"`
	Name string `json:"name" yaml:"name"`
	To   string `json:"to" yaml:"to"`
}

// CategoryGroup holds the components of one category
type CategoryGroup struct {
	Category string    `json:"category" yaml:"category"`
	Items    []NavItem `json:"items" yaml:"items"`
}

// SortedContentTypes lists the content types ascending by name. Equal
// names keep ascending uid order.
func SortedContentTypes(catalog schema.Catalog, routes resolver.Routes) []NavItem {
	items := make([]NavItem, 0, len(catalog))
	for _, uid := range catalog.Keys() {
		items = append(items, NavItem{
			UID:  uid,
			Name: catalog[uid].Schema.Name,
			To:   routes.ContentTypePath(uid),
		})
	}
	sortByName(items)
	return items
}

// ComponentCategories groups the components by category. Groups are sorted
// by category, items by name then uid.
func ComponentCategories(catalog schema.Catalog, routes resolver.Routes) []CategoryGroup {
	byCategory := make(map[string][]NavItem)
	for _, uid := range catalog.Keys() {
		record := catalog[uid]
		byCategory[record.Category] = append(byCategory[record.Category], NavItem{
			UID:  uid,
			Name: record.Schema.Name,
			To:   routes.ComponentPath(record.Category, uid),
		})
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for category, items := range byCategory {
		sortByName(items)
		groups = append(groups, CategoryGroup{Category: category, Items: items})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Category < groups[j].Category
	})
	return groups
}

func sortByName(items []NavItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
}

// Draft is the payload handed to the schema form
type Draft struct {
	Kind                    schema.Kind   `json:"kind" yaml:"kind"`
	ActiveUID               string        `json:"activeUid,omitempty" yaml:"activeUid,omitempty"`
	IsInContentTypeView     bool          `json:"isInContentTypeView" yaml:"isInContentTypeView"`
	IsLoading               bool          `json:"isLoading" yaml:"isLoading"`
	IsLoadingForDataToBeSet bool          `json:"isLoadingForDataToBeSet" yaml:"isLoadingForDataToBeSet"`
	InitialData             schema.Record `json:"initialData" yaml:"initialData"`
	ModifiedData            schema.Record `json:"modifiedData" yaml:"modifiedData"`
}

// DraftPayload copies the draft out of state for nav
func DraftPayload(state draft.State, nav resolver.NavContext) Draft {
	return Draft{
		Kind:                    nav.Kind,
		ActiveUID:               nav.UID,
		IsInContentTypeView:     nav.IsContentTypeView(),
		IsLoading:               state.IsLoading,
		IsLoadingForDataToBeSet: state.IsLoadingForDataToBeSet,
		InitialData:             state.InitialData.Clone(),
		ModifiedData:            state.ModifiedData.Clone(),
	}
}
