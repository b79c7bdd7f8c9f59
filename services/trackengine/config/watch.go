// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/trackengine/pkg/logging"
)

// Watch re-loads the configuration file whenever it changes and swaps the
// active config atomically. Invalid files are logged and skipped; the
// previous configuration stays active. Blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so editors
// and config-map style atomic renames are picked up.
func (m *Manager) Watch(ctx context.Context, path string, log *logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	log.Info("watching config file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload failed, keeping previous config", "error", err.Error())
				continue
			}
			m.swap(cfg)
			log.Info("config reloaded", "path", target)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err.Error())
		}
	}
}
