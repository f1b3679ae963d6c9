// Package activity defines the data model shared by the presentation pipeline.
//
// # Overview
//
// A Record is one immutable audit-log entry: an event kind, optional causer and subject
// references, and the before/after property snapshots captured for the change. Records are
// produced upstream and only read here.
//
// Entities are referenced domain objects (users, invoices, ...). They are reached through the
// EntityStore capability and exposed uniformly through the Entity interface, so label logic can
// read fields without knowing the concrete kind.
//
// # Resolution
//
// A ResolutionTable holds the entities fetched for one batch of records, keyed by type tag and
// identifier. It is built once per presentation call and is read-only afterwards:
//
//	table := activity.NewResolutionTable(map[string]map[string]activity.Entity{
//		"App\\Models\\User": {"10": activity.NewMapEntity("10", map[string]any{"name": "Ada"})},
//	})
//	user := table.Lookup("App\\Models\\User", "10")
//
// # Related Packages
//
//   - pkg/resolver: builds ResolutionTables with one bulk fetch per entity type
//   - pkg/differ: turns a Record into AttributeChanges
//   - pkg/presenter: orchestrates both for single records, batches and grouped pages
package activity
