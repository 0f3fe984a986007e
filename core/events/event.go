package events

// Event represents a structured state change produced by a core operation.
// Operations return the events they generated; publishing them is the
// caller's responsibility, which keeps the core free of I/O.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. the off-chain
// indexer bridge).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
