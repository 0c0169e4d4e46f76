package draft

import (
	"fmt"
	"strings"

	"github.com/effectus/schemadraft/schema"
)

// Apply returns the state that results from applying cmd to s. A rejected
// command returns s unchanged together with the reason. Commands this
// function does not know are no-ops.
func Apply(s State, cmd Command) (State, error) {
	switch c := cmd.(type) {
	case DataLoaded:
		return applyDataLoaded(s, c), nil
	case *DataLoaded:
		if c == nil {
			return s, nil
		}
		return applyDataLoaded(s, *c), nil
	case SeedDraft:
		return applySeedDraft(s, c.Record), nil
	case *SeedDraft:
		if c == nil {
			return s, nil
		}
		return applySeedDraft(s, c.Record), nil
	case AddAttribute:
		return applyAddAttribute(s, c)
	case *AddAttribute:
		if c == nil {
			return s, nil
		}
		return applyAddAttribute(s, *c)
	case CreateSchema:
		return applyCreateSchema(s, c)
	case *CreateSchema:
		if c == nil {
			return s, nil
		}
		return applyCreateSchema(s, *c)
	default:
		return s, nil
	}
}

func applyDataLoaded(s State, c DataLoaded) State {
	next := s
	next.Components = c.Components.Clone()
	next.ContentTypes = c.ContentTypes.Clone()
	next.IsLoading = false
	next.ContentTypesRevision = s.ContentTypesRevision + 1
	return next
}

func applySeedDraft(s State, record schema.Record) State {
	next := s
	next.InitialData = record.Clone()
	next.ModifiedData = record.Clone()
	next.IsLoadingForDataToBeSet = false
	return next
}

func applyAddAttribute(s State, c AddAttribute) (State, error) {
	if strings.TrimSpace(c.Attribute.Name) == "" {
		return s, ErrInvalidAttribute
	}
	next := s
	next.ModifiedData = s.ModifiedData.WithAttribute(c.Attribute)
	return next, nil
}

func applyCreateSchema(s State, c CreateSchema) (State, error) {
	if strings.TrimSpace(c.UID) == "" {
		return s, ErrInvalidUID
	}
	catalog, ok := s.Catalog(c.Kind)
	if !ok {
		return s, fmt.Errorf("create schema %q: %w: %q", c.UID, schema.ErrUnknownKind, c.Kind)
	}
	if catalog.Has(c.UID) {
		return s, &DuplicateUIDError{Kind: c.Kind, UID: c.UID}
	}

	record := schema.Record{UID: c.UID, Schema: c.Data.Clone()}
	if c.Kind == schema.KindComponent {
		record.Category = c.Category
	}

	next := s
	switch c.Kind {
	case schema.KindContentType:
		next.ContentTypes = catalog.With(record)
		next.ContentTypesRevision = s.ContentTypesRevision + 1
	case schema.KindComponent:
		next.Components = catalog.With(record)
	}
	return applySeedDraft(next, record), nil
}
