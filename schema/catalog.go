package schema

import "sort"

// Catalog maps a uid to its record. Iteration order carries no meaning.
type Catalog map[string]Record

// Normalize keys records by uid. When two records share a uid the later
// one wins.
func Normalize(records []Record) Catalog {
	catalog := make(Catalog, len(records))
	for _, record := range records {
		catalog[record.UID] = record.Clone()
	}
	return catalog
}

// Keys returns the catalog uids in ascending order
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for uid := range c {
		keys = append(keys, uid)
	}
	sort.Strings(keys)
	return keys
}

// Flatten returns the records in ascending uid order
func (c Catalog) Flatten() []Record {
	records := make([]Record, 0, len(c))
	for _, uid := range c.Keys() {
		records = append(records, c[uid].Clone())
	}
	return records
}

// Has reports whether uid is a key of the catalog
func (c Catalog) Has(uid string) bool {
	_, ok := c[uid]
	return ok
}

// Get returns a deep copy of the record stored under uid
func (c Catalog) Get(uid string) (Record, bool) {
	record, ok := c[uid]
	if !ok {
		return Record{}, false
	}
	return record.Clone(), true
}

// Clone returns a deep copy of the catalog
func (c Catalog) Clone() Catalog {
	if c == nil {
		return Catalog{}
	}
	out := make(Catalog, len(c))
	for uid, record := range c {
		out[uid] = record.Clone()
	}
	return out
}

// With returns a copy of the catalog that also holds record
func (c Catalog) With(record Record) Catalog {
	out := c.Clone()
	out[record.UID] = record.Clone()
	return out
}
