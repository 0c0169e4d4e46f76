package draft

import "github.com/effectus/schemadraft/schema"

// Command is an edit applied by the store. The set of commands is closed:
// only types declared in this package satisfy it.
type Command interface {
	// CommandName identifies the command in the store's logs
	CommandName() string
	command()
}

// DataLoaded replaces both catalogs after a successful load
type DataLoaded struct {
	Components   schema.Catalog
	ContentTypes schema.Catalog
}

// SeedDraft sets both the initial and the modified copy of the open schema
type SeedDraft struct {
	Record schema.Record
}

// AddAttribute inserts or replaces an attribute of the modified copy
type AddAttribute struct {
	Attribute schema.AttributeDefinition
}

// CreateSchema adds a new schema to a catalog and opens it for editing
type CreateSchema struct {
	Data     schema.Schema
	Kind     schema.Kind
	UID      string
	Category string
}

func (DataLoaded) CommandName() string   { return "data_loaded" }
func (SeedDraft) CommandName() string    { return "seed_draft" }
func (AddAttribute) CommandName() string { return "add_attribute" }
func (CreateSchema) CommandName() string { return "create_schema" }

func (DataLoaded) command()   {}
func (SeedDraft) command()    {}
func (AddAttribute) command() {}
func (CreateSchema) command() {}
