// Package watcher re-saves the APT inventory when the package state of the
// host changes.
//
// The Watcher follows the dpkg status file, apt's extended_states and the
// repository configuration with fsnotify. Bursts of events, such as one apt
// transaction rewriting the status file several times, are coalesced: the
// change handler runs once the files have been quiet for the debounce
// interval. Handlers run one at a time on the watching goroutine.
//
// Example usage:
//
//	targets := watcher.Targets{Status: "/var/lib/dpkg/status", SourcesDir: "/etc/apt"}
//	w, err := watcher.New(targets.Paths(), 30*time.Second, func(ctx context.Context) error {
//		_, err := manager.SaveAPT(ctx)
//		return err
//	}, slog.Default())
//	if err != nil {
//		return err
//	}
//	return w.Run(ctx)
package watcher
