package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingStateValues(t *testing.T) {
	assert.Equal(t, PendingState("REGISTERED"), PendingRegistered)
	assert.Equal(t, PendingState("RESOLVED"), PendingResolved)
	assert.Equal(t, PendingState("TIMED_OUT"), PendingTimedOut)
	assert.Equal(t, PendingState("CHANNEL_CLOSED"), PendingChannelClosed)
}
