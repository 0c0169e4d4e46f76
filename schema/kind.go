// Package schema defines the schema records edited by the builder and the
// catalog normalizer that turns a data source listing into a keyed catalog.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which catalog a schema belongs to
type Kind string

const (
	// KindContentType is a top-level, independently persisted schema
	KindContentType Kind = "content-type"

	// KindComponent is a reusable schema nested inside other schemas
	KindComponent Kind = "component"
)

// ErrUnknownKind is returned when a kind string is neither a content type nor a component
var ErrUnknownKind = errors.New("unknown schema kind")

// Kinds lists every catalog kind in load order
func Kinds() []Kind {
	return []Kind{KindComponent, KindContentType}
}

// ParseKind accepts the canonical names plus the plural endpoint spellings
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "content-type", "content-types", "contenttype", "content_type":
		return KindContentType, nil
	case "component", "components":
		return KindComponent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	return k == KindContentType || k == KindComponent
}

// Endpoint returns the plural resource segment used by data sources
func (k Kind) Endpoint() string {
	switch k {
	case KindContentType:
		return "content-types"
	case KindComponent:
		return "components"
	default:
		return string(k)
	}
}

func (k Kind) String() string {
	return string(k)
}
