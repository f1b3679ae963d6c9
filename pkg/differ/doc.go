// Package differ merges the before and after property sets of a record into an ordered
// change list.
//
// The field set is the union of old and new keys minus hidden attributes, so pure
// insertions and pure deletions surface with one side nil. Fields configured as resolvers
// carry the entity for their effective identifier (new value if present, else old).
//
//	changes := differ.Diff(record, table, cfg.Resolution)
//	for _, c := range changes {
//		fmt.Printf("%s: %v -> %v\n", c.Field, c.Old, c.New)
//	}
package differ
