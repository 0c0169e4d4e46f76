package schema

// Attribute is one field definition inside a schema. The map is kept open
// so relation metadata and constraints survive a load/save round trip
// untouched; the accessors below cover the keys the builder reads.
type Attribute map[string]interface{}

// Type returns the attribute kind (string, relation, component, ...)
func (a Attribute) Type() string {
	return a.stringValue("type")
}

// Target returns the related schema uid for relation attributes
func (a Attribute) Target() string {
	return a.stringValue("target")
}

// Relation returns the relation cardinality (oneToMany, manyWay, ...)
func (a Attribute) Relation() string {
	return a.stringValue("relation")
}

// Component returns the referenced component uid for component attributes
func (a Attribute) Component() string {
	return a.stringValue("component")
}

// Repeatable reports whether a component attribute holds a list
func (a Attribute) Repeatable() bool {
	v, _ := a["repeatable"].(bool)
	return v
}

// Required reports whether the attribute carries a required constraint
func (a Attribute) Required() bool {
	v, _ := a["required"].(bool)
	return v
}

func (a Attribute) stringValue(key string) string {
	v, _ := a[key].(string)
	return v
}

// Clone returns a deep copy of the attribute
func (a Attribute) Clone() Attribute {
	if a == nil {
		return nil
	}
	return Attribute(deepCopyMap(a))
}

// AttributeDefinition names an attribute for an add-attribute edit
type AttributeDefinition struct {
	Name      string    `json:"name" yaml:"name"`
	Attribute Attribute `json:"attribute" yaml:"attribute"`
}

// Schema is the structural part of a record
type Schema struct {
	Name           string               `json:"name" yaml:"name"`
	Description    string               `json:"description,omitempty" yaml:"description,omitempty"`
	CollectionName string               `json:"collectionName,omitempty" yaml:"collectionName,omitempty"`
	Attributes     map[string]Attribute `json:"attributes" yaml:"attributes"`
}

// Clone returns a deep copy of the schema; the attribute map is never shared
func (s Schema) Clone() Schema {
	out := s
	if s.Attributes != nil {
		out.Attributes = make(map[string]Attribute, len(s.Attributes))
		for name, attr := range s.Attributes {
			out.Attributes[name] = attr.Clone()
		}
	}
	return out
}

// Record is one content-type or component definition as delivered by a
// data source.
type Record struct {
	UID      string `json:"uid" yaml:"uid"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Schema   Schema `json:"schema" yaml:"schema"`
}

// Clone returns a deep copy of the record
func (r Record) Clone() Record {
	out := r
	out.Schema = r.Schema.Clone()
	return out
}

// IsZero reports whether the record is the empty placeholder used before a
// draft has been seeded
func (r Record) IsZero() bool {
	return r.UID == "" && r.Category == "" && r.Schema.Name == "" &&
		r.Schema.Description == "" && r.Schema.CollectionName == "" && len(r.Schema.Attributes) == 0
}

// WithAttribute returns a copy of the record whose attribute map contains
// def, replacing any attribute of the same name
func (r Record) WithAttribute(def AttributeDefinition) Record {
	out := r.Clone()
	if out.Schema.Attributes == nil {
		out.Schema.Attributes = make(map[string]Attribute, 1)
	}
	attr := def.Attribute.Clone()
	if attr == nil {
		attr = Attribute{}
	}
	out.Schema.Attributes[def.Name] = attr
	return out
}
