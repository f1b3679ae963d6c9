// Package label produces the human-readable strings shown for entities, fields, events and
// values.
//
// Everything here is pure: labels are computed from configuration, a Translator and the
// entity data already resolved by pkg/resolver.
//
// # Entity labels
//
// A present entity is labelled by the first candidate field that renders to a non-empty
// string, in this order: the caller override, the configured label attribute for the type,
// the registry label field, then the fallback fields (audit_display, name, title, code, slug,
// search_label). When nothing matches the label is the translated type name followed by
// " #" and the entity key.
//
//	r := label.NewResolver(cfg.Resolution, translator, registry)
//	r.CauserLabel(nil, "", "")                          // "System"
//	r.SubjectLabel(nil, `App\Models\Invoice`, "42", "") // "Invoice #42"
//
// # Names
//
//	r.TranslateField("first_name") // "First name" without a translation
//	r.TranslateEvent("updated")    // "Updated"
//	r.TranslateModel(`App\Models\Invoice`) // "Invoice"
package label
