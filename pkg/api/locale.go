package api

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/platinummonkey/activitylens/pkg/observability"
)

// LocaleParam selects the translation locale explicitly.
const LocaleParam = "locale"

func (s *Server) localeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if locale := s.negotiateLocale(r); locale != "" {
			r = r.WithContext(observability.WithLocale(r.Context(), locale))
		}
		next.ServeHTTP(w, r)
	})
}

// localeMatcher matches requested language tags against the available locales. The
// default locale is listed first so it wins over weaker matches of other catalogs.
type localeMatcher struct {
	matcher language.Matcher
	names   []string
}

func newLocaleMatcher(defaultLocale string, locales []string) *localeMatcher {
	m := &localeMatcher{}
	var supported []language.Tag
	seen := make(map[string]struct{}, len(locales)+1)
	for _, name := range append([]string{defaultLocale}, locales...) {
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		tag, err := language.Parse(name)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		m.names = append(m.names, name)
	}
	if len(supported) > 0 {
		m.matcher = language.NewMatcher(supported)
	}
	return m
}

// match returns the locale best serving tags, in preference order.
func (m *localeMatcher) match(tags ...language.Tag) (string, bool) {
	if m.matcher == nil || len(tags) == 0 {
		return "", false
	}
	_, index, confidence := m.matcher.Match(tags...)
	if confidence == language.No {
		return "", false
	}
	return m.names[index], true
}

// negotiateLocale returns the locale for r, or "" for the default. The locale query
// parameter takes precedence over Accept-Language.
func (s *Server) negotiateLocale(r *http.Request) string {
	if s.translations == nil {
		return ""
	}
	m := newLocaleMatcher(s.translations.DefaultLocale(), s.translations.Locales())

	if explicit := r.URL.Query().Get(LocaleParam); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			if locale, ok := m.match(tag); ok {
				return locale
			}
		}
	}

	locale, _ := m.match(acceptedLanguages(r.Header.Get("Accept-Language"))...)
	return locale
}

// acceptedLanguages returns the Accept-Language tags by descending quality. Refused
// tags (q=0) and malformed headers yield nothing.
func acceptedLanguages(header string) []language.Tag {
	if header == "" {
		return nil
	}
	tags, weights, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	accepted := tags[:0]
	for i, tag := range tags {
		if weights[i] > 0 {
			accepted = append(accepted, tag)
		}
	}
	return accepted
}
