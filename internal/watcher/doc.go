// Package watcher delivers external edits of a document file as parsed
// snapshots.
//
// A DocumentWatcher watches the file's directory with fsnotify, so editors
// that save by rename are seen too. Bursts of events are debounced, the file
// is parsed with serialize.Parse, and each new snapshot is sent on Updates.
// The owner loop applies it, typically with
// Editor.SetState(u.State, engine.WithTag(engine.TagExternal)).
//
// Content the application wrote itself can be registered with Ignore so
// its echo does not come back as an external edit.
package watcher
