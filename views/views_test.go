package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/schemadraft/draft"
	"github.com/effectus/schemadraft/resolver"
	"github.com/effectus/schemadraft/schema"
)

var routes = resolver.NewRoutes("content-type-builder")

func named(uid, name string) schema.Record {
	return schema.Record{UID: uid, Schema: schema.Schema{Name: name}}
}

func TestSortedContentTypesByName(t *testing.T) {
	catalog := schema.Normalize([]schema.Record{named("a", "Zeta"), named("b", "Alpha")})

	items := SortedContentTypes(catalog, routes)

	assert.Equal(t, []NavItem{
		{UID: "b", Name: "Alpha", To: "/plugins/content-type-builder/content-types/b"},
		{UID: "a", Name: "Zeta", To: "/plugins/content-type-builder/content-types/a"},
	}, items)
}

func TestSortedContentTypesTiesKeepUIDOrder(t *testing.T) {
	catalog := schema.Normalize([]schema.Record{
		named("c", "Same"), named("a", "Same"), named("b", "Same"), named("d", "Other"),
	})

	items := SortedContentTypes(catalog, routes)

	uids := make([]string, 0, len(items))
	for _, item := range items {
		uids = append(uids, item.UID)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, uids)
}

func TestSortedContentTypesLengthMatchesCatalog(t *testing.T) {
	records := []schema.Record{named("a", "A"), named("b", "B"), named("c", "")}
	state, err := draft.Apply(draft.InitialState(), draft.DataLoaded{
		Components:   schema.Catalog{},
		ContentTypes: schema.Normalize(records),
	})
	require.NoError(t, err)

	assert.False(t, state.IsLoading)
	assert.Len(t, SortedContentTypes(state.ContentTypes, routes), len(state.ContentTypes))
}

func TestSortedContentTypesDoesNotMutateCatalog(t *testing.T) {
	catalog := schema.Normalize([]schema.Record{named("a", "Zeta"), named("b", "Alpha")})
	before := catalog.Clone()

	SortedContentTypes(catalog, routes)

	assert.Equal(t, before, catalog)
}

func TestComponentCategories(t *testing.T) {
	catalog := schema.Normalize([]schema.Record{
		{UID: "menu.item", Category: "menu", Schema: schema.Schema{Name: "Item"}},
		{UID: "default.dish", Category: "default", Schema: schema.Schema{Name: "Dish"}},
		{UID: "default.closing", Category: "default", Schema: schema.Schema{Name: "Closing period"}},
	})

	groups := ComponentCategories(catalog, routes)

	require.Len(t, groups, 2)
	assert.Equal(t, "default", groups[0].Category)
	assert.Equal(t, []NavItem{
		{UID: "default.closing", Name: "Closing period", To: "/plugins/content-type-builder/component-categories/default/default.closing"},
		{UID: "default.dish", Name: "Dish", To: "/plugins/content-type-builder/component-categories/default/default.dish"},
	}, groups[0].Items)
	assert.Equal(t, "menu", groups[1].Category)
	assert.Len(t, groups[1].Items, 1)
}

func TestDraftPayloadIsACopy(t *testing.T) {
	state, err := draft.Apply(draft.InitialState(), draft.SeedDraft{Record: schema.Record{
		UID:    "a",
		Schema: schema.Schema{Name: "A", Attributes: map[string]schema.Attribute{"title": {"type": "string"}}},
	}})
	require.NoError(t, err)

	payload := DraftPayload(state, resolver.ContentType("a"))
	payload.ModifiedData.Schema.Attributes["title"]["type"] = "text"

	assert.True(t, payload.IsInContentTypeView)
	assert.Equal(t, "a", payload.ActiveUID)
	assert.False(t, payload.IsLoadingForDataToBeSet)
	assert.Equal(t, "string", state.ModifiedData.Schema.Attributes["title"].Type())
	assert.False(t, DraftPayload(state, resolver.Component("c", "c.c")).IsInContentTypeView)
}

func TestCacheRebuildsOnRevisionChange(t *testing.T) {
	cache := NewCache(routes)
	state, err := draft.Apply(draft.InitialState(), draft.DataLoaded{
		Components:   schema.Catalog{},
		ContentTypes: schema.Normalize([]schema.Record{named("a", "A")}),
	})
	require.NoError(t, err)

	assert.Len(t, cache.SortedContentTypes(state), 1)
	assert.Len(t, cache.SortedContentTypes(state), 1)
	assert.Equal(t, 1, cache.Builds())

	state, err = draft.Apply(state, draft.AddAttribute{Attribute: schema.AttributeDefinition{Name: "x"}})
	require.NoError(t, err)
	cache.SortedContentTypes(state)
	assert.Equal(t, 1, cache.Builds(), "draft edits do not touch the list")

	state, err = draft.Apply(state, draft.CreateSchema{Data: schema.Schema{Name: "B"}, Kind: schema.KindContentType, UID: "b"})
	require.NoError(t, err)
	items := cache.SortedContentTypes(state)
	assert.Equal(t, 2, cache.Builds())
	assert.Len(t, items, 2)
}

func TestCacheReturnsPrivateSlice(t *testing.T) {
	cache := NewCache(routes)
	state, err := draft.Apply(draft.InitialState(), draft.DataLoaded{
		Components:   schema.Catalog{},
		ContentTypes: schema.Normalize([]schema.Record{named("a", "A")}),
	})
	require.NoError(t, err)

	items := cache.SortedContentTypes(state)
	items[0].Name = "changed"

	assert.Equal(t, "A", cache.SortedContentTypes(state)[0].Name)
}
