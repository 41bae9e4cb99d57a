// Package files watches table files on disk.
//
// Watcher follows a single file by watching its parent directory, so editors
// and tools that save by writing a temporary file and renaming it over the
// original are still noticed. Bursts of events are collapsed into one
// callback after a quiet period.
//
//	w := files.NewWatcher("GFR.csv", 250*time.Millisecond, logger)
//	err := w.Watch(ctx, func(ctx context.Context) {
//	    // re-run the pass
//	})
package files
