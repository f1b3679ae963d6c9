package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/presenter"
	"github.com/platinummonkey/activitylens/pkg/resolver"
	"github.com/platinummonkey/activitylens/pkg/storage/sqlstore"
	"github.com/platinummonkey/activitylens/pkg/translation"
)

// Options holds the report command-line options
type Options struct {
	ConfigPath   string
	Subject      string
	SubjectID    string
	Limit        int
	Locale       string
	CauserLabel  string
	SubjectLabel string
	Timeout      time.Duration
	LogLevel     string
}

func main() {
	opts := parseFlags()
	logger := setupLogger(opts.LogLevel)

	if err := execute(opts, logger, os.Stdout); err != nil {
		logger.Fatalf("Report failed: %v", err)
	}
}

// execute loads the configuration and writes the report to out.
func execute(opts *Options, logger *logrus.Logger, out io.Writer) error {
	if opts.Subject == "" || opts.SubjectID == "" {
		return errors.New("-subject and -id are required")
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	return run(ctx, cfg, opts, logger, out)
}

func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.ConfigPath, "config", getEnv("ACTIVITYLENS_CONFIG", "activitylens.yaml"), "Path to the YAML configuration file")
	flag.StringVar(&opts.Subject, "subject", "", "Encoded subject type token (alias or base64)")
	flag.StringVar(&opts.SubjectID, "id", "", "Subject identifier")
	flag.IntVar(&opts.Limit, "limit", sqlstore.DefaultSearchLimit, "Maximum number of records")
	flag.StringVar(&opts.Locale, "locale", "", "Translation locale (defaults to the configured locale)")
	flag.StringVar(&opts.CauserLabel, "causer-label", "", "Causer label attribute override")
	flag.StringVar(&opts.SubjectLabel, "subject-label", "", "Subject label attribute override")
	flag.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	return opts
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func run(ctx context.Context, cfg *config.Config, opts *Options, logger *logrus.Logger, out io.Writer) error {
	db, dialect, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	activities, err := sqlstore.NewActivityStore(db, dialect, cfg.Database.ActivityTable)
	if err != nil {
		return err
	}
	entities, err := sqlstore.NewEntityStore(db, dialect, cfg.Entities)
	if err != nil {
		return err
	}

	registry := resolver.NewRegistry()
	if err := entities.Register(registry, nil); err != nil {
		return err
	}

	catalog, err := translation.NewCatalog(translation.Options{
		Dir:            cfg.Translations.Dir,
		Locale:         cfg.Translations.Locale,
		FallbackLocale: cfg.Translations.FallbackLocale,
	})
	if err != nil {
		return err
	}

	// component logs go to stderr next to the logrus output
	componentLogger := observability.NewLogger(cfg.Observability.Level(), os.Stderr)
	p := presenter.New(cfg.Resolution, registry,
		presenter.WithTranslator(catalog.ForLocale(opts.Locale)),
		presenter.WithLogger(componentLogger),
	)

	subjectType, err := p.DecodeSubjectType(opts.Subject)
	if err != nil {
		return fmt.Errorf("invalid -subject %q: %w", opts.Subject, err)
	}
	logger.Debugf("Loading activity for %s #%s", subjectType, opts.SubjectID)

	records, err := activities.Search(ctx, sqlstore.SearchFilter{
		SubjectType: subjectType,
		SubjectID:   opts.SubjectID,
		Limit:       opts.Limit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Infof("No activity recorded for %s #%s", subjectType, opts.SubjectID)
		return nil
	}

	results, err := p.PresentBatch(ctx, records)
	if err != nil {
		return err
	}

	logger.Debugf("Presenting %d records", len(results))
	return writeReport(out, results, opts.CauserLabel, opts.SubjectLabel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
