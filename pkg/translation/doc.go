// Package translation serves localized labels from YAML catalogs.
//
// # Overview
//
// A catalog directory holds one file per locale (en.yaml, fr.yaml, ...), each with the
// events, models and attributes namespaces:
//
//	events:
//	  created: Created
//	models:
//	  Invoice: Invoice
//	attributes:
//	  first_name: First name
//
// Lookups try the requested locale first and then the fallback locale.
//
// # Usage Example
//
//	catalog, err := translation.NewCatalog(translation.Options{
//		Dir:            "./lang",
//		Locale:         "fr",
//		FallbackLocale: "en",
//	})
//	cached := translation.NewCache(catalog, 1024, 10*time.Minute, metrics)
//	go catalog.Watch(ctx)
//
//	labels := label.NewResolver(cfg.Resolution, cached.ForLocale("fr"), registry)
//
// # Related Packages
//
//   - pkg/label: Consumes the Translator interface implemented here
package translation
