package label

// Translation namespaces
const (
	NamespaceEvents     = "events"
	NamespaceModels     = "models"
	NamespaceAttributes = "attributes"
)

// Translator looks up a localized label. ok is false when no translation exists.
type Translator interface {
	Translate(namespace, key string) (label string, ok bool)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(namespace, key string) (string, bool)

// Translate implements Translator.
func (f TranslatorFunc) Translate(namespace, key string) (string, bool) {
	return f(namespace, key)
}

// NopTranslator never finds a translation.
type NopTranslator struct{}

// Translate implements Translator.
func (NopTranslator) Translate(string, string) (string, bool) {
	return "", false
}

// MapTranslator serves translations from namespace -> key -> label.
type MapTranslator map[string]map[string]string

// Translate implements Translator.
func (m MapTranslator) Translate(namespace, key string) (string, bool) {
	label, ok := m[namespace][key]
	return label, ok && label != ""
}
