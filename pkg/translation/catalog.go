package translation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/activitylens/pkg/label"
	"github.com/platinummonkey/activitylens/pkg/observability"
)

// Messages maps namespace -> key -> label for one locale.
type Messages map[string]map[string]string

// Options configures a Catalog.
type Options struct {
	// Dir holds <locale>.yaml files. An empty Dir gives an empty catalog.
	Dir            string
	Locale         string
	FallbackLocale string
	Logger         *observability.Logger
	Metrics        *observability.Metrics
}

// Catalog holds the messages of every locale found in a directory. It is safe for
// concurrent use and can be reloaded while serving.
type Catalog struct {
	mu       sync.RWMutex
	locales  map[string]Messages
	onReload []func()

	dir      string
	locale   string
	fallback string
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewCatalog creates a catalog and loads opts.Dir.
func NewCatalog(opts Options) (*Catalog, error) {
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}

	c := &Catalog{
		locales:  make(map[string]Messages),
		dir:      opts.Dir,
		locale:   opts.Locale,
		fallback: opts.FallbackLocale,
		logger:   opts.Logger.WithField("component", "translation"),
		metrics:  opts.Metrics,
	}

	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load rereads every locale file and atomically replaces the catalog contents. Reload
// callbacks run after a successful load.
func (c *Catalog) Load() error {
	if c.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read translation dir %s: %w", c.dir, err)
	}

	locales := make(map[string]Messages)
	for _, entry := range entries {
		if entry.IsDir() || !isCatalogFile(entry.Name()) {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		messages, err := readMessages(path)
		if err != nil {
			return err
		}
		locales[localeOf(entry.Name())] = messages
	}

	c.mu.Lock()
	c.locales = locales
	callbacks := append([]func(){}, c.onReload...)
	c.mu.Unlock()

	c.logger.WithField("locales", len(locales)).Debug("translation catalog loaded")
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func readMessages(path string) (Messages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", path, err)
	}

	var messages Messages
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse translation file %s: %w", path, err)
	}
	if messages == nil {
		messages = Messages{}
	}
	return messages, nil
}

// OnReload registers fn to run after every successful Load.
func (c *Catalog) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = append(c.onReload, fn)
}

// Add merges messages into locale, replacing existing keys.
func (c *Catalog) Add(locale string, messages Messages) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.locales[locale]
	if !ok {
		current = Messages{}
		c.locales[locale] = current
	}
	for namespace, keys := range messages {
		if current[namespace] == nil {
			current[namespace] = make(map[string]string, len(keys))
		}
		for key, value := range keys {
			current[namespace][key] = value
		}
	}
}

// Lookup finds key in namespace for locale, falling back to the fallback locale. An empty
// locale means the default locale.
func (c *Catalog) Lookup(locale, namespace, key string) (string, bool) {
	if locale == "" {
		locale = c.locale
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, l := range []string{locale, c.fallback} {
		if l == "" {
			continue
		}
		if value := c.locales[l][namespace][key]; value != "" {
			return value, true
		}
	}
	return "", false
}

// Translate implements label.Translator for the default locale.
func (c *Catalog) Translate(namespace, key string) (string, bool) {
	value, ok := c.Lookup("", namespace, key)
	c.metrics.RecordTranslation(namespace, ok)
	return value, ok
}

// ForLocale returns a translator bound to locale.
func (c *Catalog) ForLocale(locale string) label.Translator {
	return label.TranslatorFunc(func(namespace, key string) (string, bool) {
		value, ok := c.Lookup(locale, namespace, key)
		c.metrics.RecordTranslation(namespace, ok)
		return value, ok
	})
}

// Locales returns the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locales := make([]string, 0, len(c.locales))
	for l := range c.locales {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}

// DefaultLocale returns the locale used when none is requested.
func (c *Catalog) DefaultLocale() string {
	return c.locale
}

// HasLocale reports whether locale was loaded.
func (c *Catalog) HasLocale(locale string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.locales[locale]
	return ok
}

// ErrNoDirectory is returned by Watch when the catalog has no directory.
var ErrNoDirectory = errors.New("translation catalog has no directory")

func isCatalogFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func localeOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
