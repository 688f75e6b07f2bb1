package core

// Frame is a raw outbound payload, already serialized.
type Frame []byte

// SessionID identifies one live transport session (the client token).
type SessionID string

// SignalConnection abstracts for a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
