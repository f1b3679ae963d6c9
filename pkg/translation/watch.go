package translation

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/activitylens/pkg/observability"
)

// Watch reloads the catalog whenever a locale file in its directory changes. It blocks
// until ctx is done. Failed reloads keep the previous contents.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.dir == "" {
		return ErrNoDirectory
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.dir, err)
	}

	defer observability.RecoverPanic(c.logger, "translation watcher")

	c.logger.Infof("Watching translations in %s", c.dir)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			logger := c.logger.WithField("file", event.Name)
			if err := c.Load(); err != nil {
				logger.WithError(err).Warn("translation reload failed, keeping previous catalog")
				continue
			}
			logger.Info("translations reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.WithError(err).Warn("translation watcher error")
		}
	}
}
