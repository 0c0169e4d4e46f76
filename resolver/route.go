// Package resolver decides which schema a navigation context points at and
// where the builder goes when it points at nothing.
package resolver

import (
	"net/url"
	"strings"

	"github.com/effectus/schemadraft/schema"
)

const (
	contentTypesSegment        = "content-types"
	componentCategoriesSegment = "component-categories"
)

// NavContext is the routing layer's view of what is open. An empty UID
// means no entity is selected. Category only groups component routes for
// display and never takes part in lookups.
type NavContext struct {
	Kind     schema.Kind `json:"kind" yaml:"kind"`
	UID      string      `json:"uid,omitempty" yaml:"uid,omitempty"`
	Category string      `json:"category,omitempty" yaml:"category,omitempty"`
}

// SameEntity reports whether n and other select the same schema. Category
// is ignored.
func (n NavContext) SameEntity(other NavContext) bool {
	return n.Kind == other.Kind && n.UID == other.UID
}

// IsContentTypeView reports whether the context points at the content-type
// section of the builder
func (n NavContext) IsContentTypeView() bool {
	return n.Kind == schema.KindContentType
}

// ContentType returns a content-type navigation context
func ContentType(uid string) NavContext {
	return NavContext{Kind: schema.KindContentType, UID: uid}
}

// Component returns a component navigation context
func Component(category, uid string) NavContext {
	return NavContext{Kind: schema.KindComponent, UID: uid, Category: category}
}

// Routes builds and parses the builder's paths for one plugin id
type Routes struct {
	PluginID string
}

// NewRoutes returns the routes rooted at /plugins/{pluginID}
func NewRoutes(pluginID string) Routes {
	return Routes{PluginID: strings.Trim(pluginID, "/")}
}

func (r Routes) base() string {
	return "/plugins/" + r.PluginID
}

// ContentTypePath is the navigation target of a content type
func (r Routes) ContentTypePath(uid string) string {
	return r.base() + "/" + contentTypesSegment + "/" + url.PathEscape(uid)
}

// ComponentPath is the navigation target of a component
func (r Routes) ComponentPath(category, uid string) string {
	return r.base() + "/" + componentCategoriesSegment + "/" + url.PathEscape(category) + "/" + url.PathEscape(uid)
}

// Path returns the navigation target of nav
func (r Routes) Path(nav NavContext) string {
	if nav.IsContentTypeView() {
		return r.ContentTypePath(nav.UID)
	}
	return r.ComponentPath(nav.Category, nav.UID)
}

// Parse turns a builder path into a navigation context. Paths outside the
// content-type section are treated as the component section; a path that
// names no entity yields an empty UID.
func (r Routes) Parse(path string) NavContext {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	rest := strings.TrimPrefix(strings.Trim(path, "/"), "plugins/"+r.PluginID)
	segments := splitSegments(strings.Trim(rest, "/"))

	if len(segments) > 0 && segments[0] == contentTypesSegment {
		nav := NavContext{Kind: schema.KindContentType}
		if len(segments) > 1 {
			nav.UID = segments[1]
		}
		return nav
	}

	nav := NavContext{Kind: schema.KindComponent}
	if len(segments) > 0 && segments[0] == componentCategoriesSegment {
		if len(segments) > 1 {
			nav.Category = segments[1]
		}
		if len(segments) > 2 {
			nav.UID = segments[2]
		}
	}
	return nav
}

// ParseRoute parses path against the routes of pluginID
func ParseRoute(pluginID, path string) NavContext {
	return NewRoutes(pluginID).Parse(path)
}

// splitSegments keeps empty inner segments so positions stay fixed: a
// component without a category routes as component-categories//{uid}
func splitSegments(path string) []string {
	if path == "" {
		return nil
	}
	var segments []string
	for _, part := range strings.Split(path, "/") {
		if unescaped, err := url.PathUnescape(part); err == nil {
			part = unescaped
		}
		segments = append(segments, part)
	}
	return segments
}
