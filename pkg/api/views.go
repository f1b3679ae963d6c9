package api

import (
	"time"

	"github.com/platinummonkey/activitylens/pkg/presenter"
)

// ChangeView is one attribute change of an ActivityView.
type ChangeView struct {
	Field      string `json:"field"`
	FieldLabel string `json:"field_label"`
	Old        any    `json:"old"`
	New        any    `json:"new"`
	OldLabel   string `json:"old_label"`
	NewLabel   string `json:"new_label"`
}

// ActivityView is the JSON form of a presented record.
type ActivityView struct {
	ID                 int64        `json:"id"`
	LogName            string       `json:"log_name,omitempty"`
	Event              string       `json:"event"`
	EventLabel         string       `json:"event_label"`
	Description        string       `json:"description,omitempty"`
	Timestamp          time.Time    `json:"timestamp"`
	CauserLabel        string       `json:"causer_label"`
	SubjectLabel       string       `json:"subject_label"`
	SubjectType        string       `json:"subject_type,omitempty"`
	SubjectTypeLabel   string       `json:"subject_type_label,omitempty"`
	SubjectID          string       `json:"subject_id,omitempty"`
	EncodedSubjectType string       `json:"encoded_subject_type,omitempty"`
	Changes            []ChangeView `json:"changes"`
}

// ListView is a page of ActivityViews from a filtered search.
type ListView struct {
	Data   []ActivityView `json:"data"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// GroupView is one row of a grouped page. Activity is nil when the row's record is gone.
type GroupView struct {
	Group    map[string]any `json:"group"`
	Activity *ActivityView  `json:"activity,omitempty"`
}

// PageView is a grouped page with its pagination metadata.
type PageView struct {
	Data        []GroupView `json:"data"`
	Count       int         `json:"count"`
	Total       int         `json:"total"`
	PerPage     int         `json:"per_page"`
	CurrentPage int         `json:"current_page"`
	LastPage    int         `json:"last_page"`
}

// labelOverrides carries the causer_label and subject_label query parameters.
type labelOverrides struct {
	Causer  string
	Subject string
}

func newActivityView(p *presenter.Presenter, result *presenter.Result, overrides labelOverrides) ActivityView {
	record := result.Record
	view := ActivityView{
		ID:               record.ID,
		LogName:          record.LogName,
		Event:            record.Event,
		EventLabel:       result.EventLabel(),
		Description:      record.Description,
		Timestamp:        record.Timestamp,
		CauserLabel:      result.CauserLabel(overrides.Causer),
		SubjectLabel:     result.SubjectLabel(overrides.Subject),
		SubjectType:      record.SubjectType,
		SubjectTypeLabel: result.SubjectTypeLabel(),
		SubjectID:        record.SubjectID,
		Changes:          make([]ChangeView, 0, len(result.Changes)),
	}
	if record.SubjectType != "" {
		view.EncodedSubjectType = p.EncodeSubjectType(record.SubjectType)
	}

	for _, change := range result.Changes {
		oldLabel, newLabel := result.ValueLabels(change, "")
		view.Changes = append(view.Changes, ChangeView{
			Field:      change.Field,
			FieldLabel: result.FieldLabel(change.Field),
			Old:        change.Old,
			New:        change.New,
			OldLabel:   oldLabel,
			NewLabel:   newLabel,
		})
	}
	return view
}

func newPageView(p *presenter.Presenter, page *presenter.Page, overrides labelOverrides) PageView {
	view := PageView{
		Data:        make([]GroupView, 0, page.Count()),
		Count:       page.Count(),
		Total:       page.Total,
		PerPage:     page.PerPage,
		CurrentPage: page.CurrentPage,
		LastPage:    page.LastPage(),
	}
	for _, row := range page.Rows {
		group := GroupView{Group: row.Values}
		if row.Presentation != nil {
			v := newActivityView(p, row.Presentation, overrides)
			v.EncodedSubjectType = row.EncodedSubjectType
			group.Activity = &v
		}
		view.Data = append(view.Data, group)
	}
	return view
}
