package config

import "fmt"

// DefaultHiddenAttributes are excluded from change lists unless configured otherwise.
var DefaultHiddenAttributes = []string{
	"password",
	"remember_token",
	"updated_at",
	"created_at",
	"deleted_at",
}

// Resolution declares how record fields are resolved and displayed.
// It is read-only once loaded.
type Resolution struct {
	// Resolvers maps a field name to the type tag of the entity its value identifies.
	Resolvers map[string]string `yaml:"resolvers"`

	// LabelAttribute maps a type tag to the entity field used as its display label.
	LabelAttribute map[string]string `yaml:"label_attribute"`

	// HiddenAttributes are never reported as changes.
	HiddenAttributes []string `yaml:"hidden_attributes"`

	// SubjectAliases maps a type tag to a short token used in URLs.
	SubjectAliases map[string]string `yaml:"subject_aliases"`
}

// DefaultResolution returns a Resolution with the default hidden attributes and no resolvers.
func DefaultResolution() Resolution {
	hidden := make([]string, len(DefaultHiddenAttributes))
	copy(hidden, DefaultHiddenAttributes)
	return Resolution{HiddenAttributes: hidden}
}

// ResolverFor returns the entity type configured for field.
func (r Resolution) ResolverFor(field string) (string, bool) {
	t, ok := r.Resolvers[field]
	return t, ok && t != ""
}

// LabelAttributeFor returns the label field configured for entityType.
func (r Resolution) LabelAttributeFor(entityType string) (string, bool) {
	attr, ok := r.LabelAttribute[entityType]
	return attr, ok && attr != ""
}

// IsHidden reports whether field must be excluded from change output.
func (r Resolution) IsHidden(field string) bool {
	for _, h := range r.HiddenAttributes {
		if h == field {
			return true
		}
	}
	return false
}

// AliasFor returns the alias configured for entityType.
func (r Resolution) AliasFor(entityType string) (string, bool) {
	alias, ok := r.SubjectAliases[entityType]
	return alias, ok && alias != ""
}

// TypeForAlias returns the type tag whose alias is alias.
func (r Resolution) TypeForAlias(alias string) (string, bool) {
	for entityType, a := range r.SubjectAliases {
		if a == alias {
			return entityType, true
		}
	}
	return "", false
}

// EntityTypes returns the distinct entity types referenced by Resolvers.
func (r Resolution) EntityTypes() []string {
	seen := make(map[string]struct{}, len(r.Resolvers))
	types := make([]string, 0, len(r.Resolvers))
	for _, t := range r.Resolvers {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	return types
}

// Validate checks that subject aliases form a bijection.
func (r Resolution) Validate() error {
	owners := make(map[string]string, len(r.SubjectAliases))
	for entityType, alias := range r.SubjectAliases {
		if alias == "" {
			return fmt.Errorf("subject alias for %q is empty", entityType)
		}
		if other, ok := owners[alias]; ok {
			return fmt.Errorf("subject alias %q is used by both %q and %q", alias, other, entityType)
		}
		owners[alias] = entityType
	}
	for field, entityType := range r.Resolvers {
		if entityType == "" {
			return fmt.Errorf("resolver for field %q has no entity type", field)
		}
	}
	return nil
}
