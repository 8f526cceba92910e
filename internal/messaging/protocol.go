package messaging

// RPCHandler processes a decoded request payload and returns a response
// payload.
type RPCHandler func(payload []byte) ([]byte, error)

// PendingState is the lifecycle of a pending RPC call:
// REGISTERED -> RESOLVED | TIMED_OUT | CHANNEL_CLOSED.
type PendingState string

const (
	PendingRegistered    PendingState = "REGISTERED"
	PendingResolved      PendingState = "RESOLVED"
	PendingTimedOut      PendingState = "TIMED_OUT"
	PendingChannelClosed PendingState = "CHANNEL_CLOSED"
)
