// Package api exposes activity presentations over a JSON HTTP API.
//
// # Overview
//
// The server is a gorilla/mux router with three read-only routes:
//
//	GET /activities/{id}       one presented record
//	GET /activities            filtered list, newest first
//	GET /activities/grouped    latest record per subject, paginated
//
// List filters are subject_type (an encoded subject type token), subject_id, causer_type,
// causer_id, event and log_name. The causer_label and subject_label query parameters override
// the label attribute used for causers and subjects.
//
// The translation locale comes from the locale query parameter, then Accept-Language. Only
// locales the translation catalog knows are used; the catalog default applies otherwise.
//
// # Usage Example
//
//	server := api.NewServer(p, activities,
//		api.WithTranslations(translationCache),
//		api.WithLogger(logger),
//	)
//	http.ListenAndServe(":8080", server)
//
// # Related Packages
//
//   - pkg/presenter: builds the presentations
//   - pkg/storage/sqlstore: ActivityStore satisfies ActivitySource
//   - pkg/httputil: response helpers and middleware
package api
