package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Source yields the engine configuration in force right now.
type Source interface {
	Engine() Engine
}

// Static is a fixed Source, used by tests and one-shot commands.
type Static Engine

func (s Static) Engine() Engine { return Engine(s) }

// Watcher is a Source that reloads the config file when it changes. A
// reload that fails to parse or validate keeps the previous snapshot.
type Watcher struct {
	cur atomic.Pointer[Config]
	log *zap.Logger
}

// Watch loads path and keeps the result current as the file changes.
// path must name an existing file.
func Watch(path string, log *zap.Logger) (*Watcher, error) {
	v := newViper(path)
	if err := read(v, true); err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	w := &Watcher{log: log}
	w.cur.Store(cfg)

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			w.log.Error("config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		w.cur.Store(next)
		w.log.Info("config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()
	return w, nil
}

// Config returns the current full configuration.
func (w *Watcher) Config() *Config {
	return w.cur.Load()
}

func (w *Watcher) Engine() Engine {
	return w.cur.Load().Engine
}
