package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it changes and hands each
// successfully validated result to apply. A file that fails to load is
// logged and skipped; the previous configuration stays in effect.
func Watch(ctx context.Context, path string, log *slog.Logger, apply func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Warn("Ignoring config change", "path", path, "error", err)
					continue
				}
				log.Info("Configuration reloaded", "path", path)
				apply(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Config watcher error", "error", err)
			}
		}
	}()
	return nil
}
