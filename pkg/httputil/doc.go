// Package httputil provides the JSON response helpers, query parsing and middleware shared by
// the activitylens HTTP handlers.
//
// # Overview
//
// Responses are always JSON. Errors use the ErrorResponse envelope and carry the request id
// when RequestIDMiddleware ran earlier in the chain:
//
//	{"error": "activity record not found: 12", "request_id": "5f0c..."}
//
// # Usage Example
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)(router)
//
//	func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
//		id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//		if !ok {
//			return
//		}
//		...
//		httputil.WriteSuccess(w, view)
//	}
//
// # Related Packages
//
//   - pkg/api: handlers built on these helpers
//   - pkg/observability: request id and logger context helpers
package httputil
