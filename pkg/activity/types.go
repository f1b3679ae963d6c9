package activity

import (
	"context"
	"time"
)

// Standard event kinds. Any other string is a custom event.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Properties maps a field name to a scalar value. Values are JSON scalars
// (string, float64, bool, nil) or Go integers.
type Properties map[string]any

// Keys returns the property names in a stable order (sorted).
func (p Properties) Keys() []string {
	return sortedKeys(p)
}

// Reference points at an entity by type tag and identifier.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// IsZero reports whether the reference points at nothing.
func (r Reference) IsZero() bool {
	return r.Type == "" || r.ID == ""
}

// Record represents a single audit-log entry.
type Record struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	LogName     string    `json:"log_name,omitempty"`
	Event       string    `json:"event"`
	Description string    `json:"description,omitempty"`

	// Causer is nil for system-initiated changes.
	Causer *Reference `json:"causer,omitempty"`

	// SubjectType and SubjectID survive the subject's deletion.
	SubjectType string `json:"subject_type,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`

	// Old holds the values before the change, New the values after it.
	Old Properties `json:"old,omitempty"`
	New Properties `json:"attributes,omitempty"`
}

// SubjectRef returns the subject reference, or nil when the record has none.
func (r *Record) SubjectRef() *Reference {
	if r.SubjectType == "" || r.SubjectID == "" {
		return nil
	}
	return &Reference{Type: r.SubjectType, ID: r.SubjectID}
}

// ChangedKeys returns the union of old and new property names in first-appearance order,
// old set first then new set. Each set is walked in sorted key order so the result is
// deterministic.
func (r *Record) ChangedKeys() []string {
	seen := make(map[string]struct{}, len(r.Old)+len(r.New))
	keys := make([]string, 0, len(r.Old)+len(r.New))
	for _, set := range []Properties{r.Old, r.New} {
		for _, key := range set.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// Entity is a domain object located by type tag and identifier.
type Entity interface {
	// Key returns the entity identifier in canonical string form.
	Key() string

	// Field returns the named attribute. ok is false when the entity has no such attribute.
	Field(name string) (value any, ok bool)
}

// EntityStore fetches entities in bulk.
//
// Implementations must omit unknown identifiers instead of failing. An unknown entity type
// should be reported with an error wrapping resolver.ErrUnknownEntityType.
type EntityStore interface {
	FetchByIDs(ctx context.Context, entityType string, ids []string) (map[string]Entity, error)
}

// AttributeChange is one field-level change of a record.
type AttributeChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`

	// Entity is the resolved entity for the effective identifier, if the field is a
	// configured resolver. The change does not own it.
	Entity Entity `json:"-"`
}

// EffectiveID returns the identifier used for resolution: the new value if present and
// non-null, otherwise the old value.
func (c AttributeChange) EffectiveID() (string, bool) {
	if id, ok := IdentifierOf(c.New); ok {
		return id, true
	}
	return IdentifierOf(c.Old)
}
