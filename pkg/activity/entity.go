package activity

import "sort"

// MapEntity is an Entity backed by a plain attribute map. It is what the SQL and Redis
// stores produce.
type MapEntity struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// NewMapEntity creates a MapEntity. The fields map is not copied.
func NewMapEntity(id string, fields map[string]any) *MapEntity {
	if fields == nil {
		fields = map[string]any{}
	}
	return &MapEntity{ID: id, Fields: fields}
}

// Key implements Entity.
func (e *MapEntity) Key() string {
	return e.ID
}

// Field implements Entity.
func (e *MapEntity) Field(name string) (any, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// ResolutionTable maps type tag -> identifier -> entity for one batch.
type ResolutionTable struct {
	entries map[string]map[string]Entity
}

// NewResolutionTable wraps entries. The caller must not modify entries afterwards.
func NewResolutionTable(entries map[string]map[string]Entity) *ResolutionTable {
	if entries == nil {
		entries = map[string]map[string]Entity{}
	}
	return &ResolutionTable{entries: entries}
}

// Lookup returns the entity for the given type and identifier, or nil.
func (t *ResolutionTable) Lookup(entityType, id string) Entity {
	if t == nil || id == "" {
		return nil
	}
	return t.entries[entityType][id]
}

// LookupRef is Lookup for a reference; a nil reference yields nil.
func (t *ResolutionTable) LookupRef(ref *Reference) Entity {
	if ref == nil {
		return nil
	}
	return t.Lookup(ref.Type, ref.ID)
}

// Types returns the entity types present in the table, sorted.
func (t *ResolutionTable) Types() []string {
	if t == nil {
		return nil
	}
	return sortedKeys(t.entries)
}

// Len returns the number of entities resolved for entityType.
func (t *ResolutionTable) Len(entityType string) int {
	if t == nil {
		return 0
	}
	return len(t.entries[entityType])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
