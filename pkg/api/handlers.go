package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/platinummonkey/activitylens/pkg/httputil"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/presenter"
	"github.com/platinummonkey/activitylens/pkg/storage/sqlstore"
)

// List limits
const (
	DefaultLimit   = sqlstore.DefaultSearchLimit
	MaxLimit       = 200
	MaxPerPage     = 100
	maxQueryOffset = math.MaxInt32
)

func overridesFrom(r *http.Request) labelOverrides {
	return labelOverrides{
		Causer:  httputil.ParseQueryString(r, "causer_label", ""),
		Subject: httputil.ParseQueryString(r, "subject_label", ""),
	}
}

// filterFrom reads the record filters shared by the list and grouped routes.
func (s *Server) filterFrom(r *http.Request) (sqlstore.SearchFilter, error) {
	filter := sqlstore.SearchFilter{
		SubjectID:  httputil.ParseQueryString(r, "subject_id", ""),
		CauserType: httputil.ParseQueryString(r, "causer_type", ""),
		CauserID:   httputil.ParseQueryString(r, "causer_id", ""),
		Event:      httputil.ParseQueryString(r, "event", ""),
		LogName:    httputil.ParseQueryString(r, "log_name", ""),
	}
	if token := httputil.ParseQueryString(r, "subject_type", ""); token != "" {
		subjectType, err := s.presenter.DecodeSubjectType(token)
		if err != nil {
			return filter, err
		}
		filter.SubjectType = subjectType
	}
	return filter, nil
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.logger.WithError(err).
		WithField("request_id", observability.GetRequestID(r.Context())).
		WithField("path", r.URL.Path).
		Error(message)
	httputil.WriteInternalError(w, err)
}

// getActivity handles GET /activities/{id}
func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	record, err := s.activities.Get(r.Context(), id)
	if errors.Is(err, sqlstore.ErrRecordNotFound) {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, err, "failed to load activity")
		return
	}

	p := s.presenterFor(r.Context())
	result, err := p.Present(r.Context(), record)
	if err != nil {
		s.internalError(w, r, err, "failed to present activity")
		return
	}

	httputil.WriteSuccess(w, newActivityView(p, result, overridesFrom(r)))
}

// listActivities handles GET /activities
func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFrom(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	limit, err := httputil.ParseQueryIntRange(r, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.ParseQueryIntRange(r, "offset", 0, 0, maxQueryOffset)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	filter.Limit, filter.Offset = limit, offset

	records, err := s.activities.Search(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, err, "failed to search activities")
		return
	}

	p := s.presenterFor(r.Context())
	results, err := p.PresentBatch(r.Context(), records)
	if err != nil {
		s.internalError(w, r, err, "failed to present activities")
		return
	}

	overrides := overridesFrom(r)
	view := ListView{Data: make([]ActivityView, 0, len(results)), Limit: limit, Offset: offset}
	for _, result := range results {
		view.Data = append(view.Data, newActivityView(p, result, overrides))
	}
	httputil.WriteSuccess(w, view)
}

// listGrouped handles GET /activities/grouped
func (s *Server) listGrouped(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFrom(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	page, err := httputil.ParseQueryIntRange(r, "page", 1, 1, maxQueryOffset)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	perPage, err := httputil.ParseQueryIntRange(r, "per_page", presenter.DefaultPerPage, 1, MaxPerPage)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	p := s.presenterFor(r.Context())
	result, err := p.PresentGrouped(r.Context(), s.activities.GroupedBySubject(filter), s.activities, presenter.GroupOptions{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		s.internalError(w, r, err, "failed to present grouped activities")
		return
	}

	httputil.WriteSuccess(w, newPageView(p, result, overridesFrom(r)))
}
