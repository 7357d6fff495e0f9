// Package runtime is the System Composition layer: it assembles a story
// handle, event bus, time/battery context, and locale table into one
// Manager/Session surface a host process can drive, and enforces a
// single-threaded-per-session rule by routing every command through a
// session's own serialized command channel instead of letting callers
// touch a Conversation Context from multiple goroutines.
package runtime
