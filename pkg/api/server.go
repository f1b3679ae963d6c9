package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/label"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/presenter"
	"github.com/platinummonkey/activitylens/pkg/storage/sqlstore"
)

// ActivitySource reads activity records. *sqlstore.ActivityStore implements it.
type ActivitySource interface {
	presenter.RecordSource
	Get(ctx context.Context, id int64) (*activity.Record, error)
	Search(ctx context.Context, filter sqlstore.SearchFilter) ([]*activity.Record, error)
	GroupedBySubject(filter sqlstore.SearchFilter) *sqlstore.SubjectGroups
}

// Translations provides per-locale translators. *translation.Cache implements it.
type Translations interface {
	ForLocale(locale string) label.Translator
	Locales() []string
	DefaultLocale() string
}

// Server represents the activity API server
type Server struct {
	router       *mux.Router
	presenter    *presenter.Presenter
	activities   ActivitySource
	translations Translations
	logger       *observability.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTranslations enables locale negotiation against t.
func WithTranslations(t Translations) Option {
	return func(s *Server) {
		s.translations = t
	}
}

// WithLogger sets the logger for handler errors.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new API server
func NewServer(p *presenter.Presenter, activities ActivitySource, opts ...Option) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		presenter:  p,
		activities: activities,
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.localeMiddleware)

	s.router.HandleFunc("/activities", s.listActivities).Methods(http.MethodGet)
	s.router.HandleFunc("/activities/grouped", s.listGrouped).Methods(http.MethodGet)
	s.router.HandleFunc("/activities/{id:[0-9]+}", s.getActivity).Methods(http.MethodGet)
}

// Router returns the underlying router so callers can mount more routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// presenterFor returns the presenter bound to the request locale.
func (s *Server) presenterFor(ctx context.Context) *presenter.Presenter {
	if s.translations == nil {
		return s.presenter
	}
	return s.presenter.WithTranslator(s.translations.ForLocale(observability.GetLocale(ctx)))
}
