// Package resolver turns identifiers stored in activity records into the entities they
// reference.
//
// # Overview
//
// A Registry maps type tags to Descriptors. Each descriptor supplies the bulk fetch
// function for that type, the field used as its display label, and whether fetch errors
// must fail the whole presentation.
//
// A BatchResolver scans a batch of records, collects every candidate identifier per type
// (configured resolver fields, plus causer and subject references), and issues exactly one
// fetch per type with the deduplicated identifier set.
//
// # Usage Example
//
//	registry := resolver.NewRegistry()
//	registry.MustRegister(`App\Models\User`, resolver.Descriptor{
//		Fetch:      resolver.StoreFetch(store, `App\Models\User`),
//		LabelField: "name",
//	})
//
//	batch := resolver.NewBatchResolver(registry, cfg.Resolution, resolver.WithLogger(logger))
//	table, err := batch.Resolve(ctx, records)
//
// # Failure Policy
//
//   - Types without a descriptor are skipped.
//   - A fetch returning ErrUnknownEntityType is skipped.
//   - Context errors and fetch errors from FailHard descriptors are returned.
//   - Any other fetch error leaves the type unresolved and is logged.
package resolver
