package differ

import (
	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
)

// Diff returns one change per visible field of record, ordered by first appearance with
// the old set walked before the new set. It performs no I/O.
func Diff(record *activity.Record, table *activity.ResolutionTable, resolution config.Resolution) []activity.AttributeChange {
	if record == nil {
		return nil
	}

	keys := record.ChangedKeys()
	changes := make([]activity.AttributeChange, 0, len(keys))
	for _, key := range keys {
		if resolution.IsHidden(key) {
			continue
		}

		change := activity.AttributeChange{
			Field: key,
			Old:   record.Old[key],
			New:   record.New[key],
		}

		if entityType, ok := resolution.ResolverFor(key); ok {
			if id, ok := change.EffectiveID(); ok {
				change.Entity = table.Lookup(entityType, id)
			}
		}

		changes = append(changes, change)
	}
	return changes
}

// Fields returns the field names of changes in order.
func Fields(changes []activity.AttributeChange) []string {
	fields := make([]string, len(changes))
	for i, c := range changes {
		fields[i] = c.Field
	}
	return fields
}
