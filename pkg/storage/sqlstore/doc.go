// Package sqlstore provides the SQL persistence layer: bulk entity fetchers for the resolver
// registry and the activity log table.
//
// # Overview
//
// Two stores share a *sql.DB and a Dialect:
//
//   - EntityStore loads entities of one configured table per type tag with a single
//     "key::text = ANY($1)" (PostgreSQL) or "key IN (?, ...)" (SQLite) query.
//   - ActivityStore writes and reads activity records. Properties are stored as one JSON
//     column holding the "old" and "attributes" maps.
//
// ActivityStore implements presenter.RecordSource, and GroupedBySubject returns a
// presenter.GroupQuery listing the latest record per subject.
//
// # Usage Example
//
//	db, dialect, err := sqlstore.Open(ctx, cfg.Database)
//	if err != nil {
//		return err
//	}
//	entities, err := sqlstore.NewEntityStore(db, dialect, cfg.Entities)
//	if err != nil {
//		return err
//	}
//	if err := entities.Register(registry, nil); err != nil {
//		return err
//	}
//	activities, err := sqlstore.NewActivityStore(db, dialect, cfg.Database.ActivityTable)
//	if err != nil {
//		return err
//	}
//	page, err := p.PresentGrouped(ctx, activities.GroupedBySubject(sqlstore.SearchFilter{}), activities, presenter.GroupOptions{})
//
// # Related Packages
//
//   - pkg/resolver: Registry that the entity fetchers are registered into
//   - pkg/presenter: GroupQuery and RecordSource interfaces
//   - pkg/storage/redisstore: read-through cache in front of the fetchers
package sqlstore
