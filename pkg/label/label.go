package label

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
)

const (
	SystemLabel        = "System"
	UnknownEntityLabel = "Unknown Entity"
)

// FallbackFields are tried in order when no label field is configured for an entity type.
var FallbackFields = []string{"audit_display", "name", "title", "code", "slug", "search_label"}

// LabelFieldSource supplies per-type label fields, typically a *resolver.Registry.
type LabelFieldSource interface {
	LabelField(entityType string) (string, bool)
}

// Resolver computes labels. It holds no per-call state and is safe for concurrent use.
type Resolver struct {
	resolution config.Resolution
	translator Translator
	fields     LabelFieldSource
}

// NewResolver creates a label resolver. translator and fields may be nil.
func NewResolver(resolution config.Resolution, translator Translator, fields LabelFieldSource) *Resolver {
	if translator == nil {
		translator = NopTranslator{}
	}
	return &Resolver{
		resolution: resolution,
		translator: translator,
		fields:     fields,
	}
}

// LabelFor labels a present entity of entityType. override names an attribute to try
// before any configured one. A nil entity yields "".
func (r *Resolver) LabelFor(entity activity.Entity, entityType, override string) string {
	if entity == nil {
		return ""
	}

	for _, field := range r.candidates(entityType, override) {
		if value, ok := entity.Field(field); ok {
			if s := RenderValue(value); s != "" {
				return s
			}
		}
	}

	return r.TranslateModel(entityType) + " #" + entity.Key()
}

func (r *Resolver) candidates(entityType, override string) []string {
	fields := make([]string, 0, len(FallbackFields)+3)
	if override != "" {
		fields = append(fields, override)
	}
	if attr, ok := r.resolution.LabelAttributeFor(entityType); ok {
		fields = append(fields, attr)
	}
	if r.fields != nil {
		if attr, ok := r.fields.LabelField(entityType); ok {
			fields = append(fields, attr)
		}
	}
	return append(fields, FallbackFields...)
}

// CauserLabel labels the causer of a record; a nil causer is the system.
func (r *Resolver) CauserLabel(causer activity.Entity, causerType, override string) string {
	if causer == nil {
		return SystemLabel
	}
	return r.LabelFor(causer, causerType, override)
}

// SubjectLabel labels the subject of a record. A deleted subject with a known type is
// labelled by type and identifier.
func (r *Resolver) SubjectLabel(subject activity.Entity, subjectType, subjectID, override string) string {
	if subject != nil {
		return r.LabelFor(subject, subjectType, override)
	}
	if subjectType == "" {
		return UnknownEntityLabel
	}
	if subjectID == "" {
		return r.TranslateModel(subjectType)
	}
	return r.TranslateModel(subjectType) + " #" + subjectID
}

// ValueLabels renders both sides of change. The side whose identifier equals the resolved
// entity's key renders the entity label; the other side renders its raw value.
func (r *Resolver) ValueLabels(change activity.AttributeChange, override string) (oldLabel, newLabel string) {
	oldLabel, newLabel = RenderValue(change.Old), RenderValue(change.New)
	if change.Entity == nil {
		return oldLabel, newLabel
	}

	entityType, _ := r.resolution.ResolverFor(change.Field)
	key := change.Entity.Key()
	entityLabel := r.LabelFor(change.Entity, entityType, override)

	if id, ok := activity.IdentifierOf(change.Old); ok && id == key {
		oldLabel = entityLabel
	}
	if id, ok := activity.IdentifierOf(change.New); ok && id == key {
		newLabel = entityLabel
	}
	return oldLabel, newLabel
}

// TranslateField returns the translated attribute name, or the humanized field name:
// underscores become spaces and the first letter is capitalized.
func (r *Resolver) TranslateField(field string) string {
	if label, ok := r.translator.Translate(NamespaceAttributes, field); ok {
		return label
	}
	return upperFirst(strings.ReplaceAll(field, "_", " "))
}

// TranslateEvent returns the translated event name, or the event with its first letter
// capitalized.
func (r *Resolver) TranslateEvent(event string) string {
	if label, ok := r.translator.Translate(NamespaceEvents, event); ok {
		return label
	}
	return upperFirst(event)
}

// TranslateModel returns the translated short type name, or the short name itself.
func (r *Resolver) TranslateModel(entityType string) string {
	short := ShortTypeName(entityType)
	if label, ok := r.translator.Translate(NamespaceModels, short); ok {
		return label
	}
	return short
}

// ShortTypeName strips namespace or package qualification from a type tag:
// `App\Models\User`, "app.models.User" and "models/User" all become "User".
func ShortTypeName(entityType string) string {
	if i := strings.LastIndexAny(entityType, `\/.`); i >= 0 {
		return entityType[i+1:]
	}
	return entityType
}

// RenderValue renders a scalar property value for display. nil renders as "".
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "true"
		}
		return "false"
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	s, _ := activity.IdentifierOf(v)
	return s
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
