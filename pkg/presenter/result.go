package presenter

import (
	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/label"
)

// Result is the presentation of one record. Labels are computed on demand because they
// depend on caller overrides.
type Result struct {
	Record  *activity.Record
	Causer  activity.Entity
	Subject activity.Entity
	Changes []activity.AttributeChange

	labels *label.Resolver
}

// CauserLabel labels the causer, "System" when there is none.
func (r *Result) CauserLabel(override string) string {
	causerType := ""
	if r.Record.Causer != nil {
		causerType = r.Record.Causer.Type
	}
	return r.labels.CauserLabel(r.Causer, causerType, override)
}

// SubjectLabel labels the subject, including subjects deleted since the record was written.
func (r *Result) SubjectLabel(override string) string {
	return r.labels.SubjectLabel(r.Subject, r.Record.SubjectType, r.Record.SubjectID, override)
}

// EventLabel returns the translated event name.
func (r *Result) EventLabel() string {
	return r.labels.TranslateEvent(r.Record.Event)
}

// SubjectTypeLabel returns the translated subject type, or "" when the record has none.
func (r *Result) SubjectTypeLabel() string {
	if r.Record.SubjectType == "" {
		return ""
	}
	return r.labels.TranslateModel(r.Record.SubjectType)
}

// FieldLabel returns the translated name of field.
func (r *Result) FieldLabel(field string) string {
	return r.labels.TranslateField(field)
}

// ValueLabels renders the old and new values of change.
func (r *Result) ValueLabels(change activity.AttributeChange, override string) (oldLabel, newLabel string) {
	return r.labels.ValueLabels(change, override)
}

// Change returns the change for field.
func (r *Result) Change(field string) (activity.AttributeChange, bool) {
	for _, c := range r.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return activity.AttributeChange{}, false
}
