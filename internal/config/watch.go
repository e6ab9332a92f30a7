// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package config

import (
	"github.com/fsnotify/fsnotify"
)

// Watch watches path (a YAML config file) for writes and invokes onChange
// once per write event, the same underlying mechanism viper's own
// WatchConfig uses. Scriptdap drives this itself, rather than going through
// viper.WatchConfig, so the caller controls exactly when a config reload
// takes effect (mid-session log-level changes, not a full re-layer of
// flags/env/file).
//
// The returned watcher's Close method stops the watch; callers should defer
// it. A nil error with a nil watcher never happens — callers only need to
// check err.
func Watch(path string, onChange func()) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return w, nil
}
