// Package watcher reports changes to the entries of a journal directory.
//
// fsnotify is used when available, with periodic polling as a fallback for
// filesystems that do not deliver notifications. Only markdown entries and
// the journal config file are reported; hidden directories and the journal's
// own snapshot and lock files are ignored. Bursts of events for one path are
// coalesced by a Debouncer before they are delivered as a batch.
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	go w.Start(ctx, journalDir)
//	for batch := range w.Events() {
//	    coordinator.HandleEvents(ctx, batch)
//	}
package watcher
