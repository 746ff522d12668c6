package rulestore

import (
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/sgmcp/internal/logging"
)

// Watch starts a background fsnotify watch over dirs, reloading and replacing s's
// in-memory rule set on any write/create/remove/rename event. Off by default
// (config.RuleStore.WatchEnabled); intended for long-running stdio sessions editing
// rules through an external editor rather than only through create_rule/delete_rule.
// Reload errors are logged via logger and otherwise swallowed — a watch event never
// brings the server down, it just skips that reload.
func (s *Store) Watch(dirs []string, logger *logging.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				reloaded, warnings, err := Load(dirs, s.writeDir)
				if err != nil {
					logger.Printf("rulestore: reload after %s failed: %v", event.Name, err)
					continue
				}
				for _, w := range warnings {
					logger.Printf("rulestore: %s", w)
				}
				s.mu.Lock()
				s.configs = reloaded.configs
				s.mu.Unlock()
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Printf("rulestore: watch error: %v", watchErr)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
