package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("check-pending-payments")
		ObserveRun("delivery", "success", 40*time.Millisecond)
		IncAutoReleased()
		IncDisputeEscalated()
		IncReminder("dispute_day2")
		AddNotificationsInserted(3)
	})
}
