package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPartyRoleOpposite(t *testing.T) {
	assert.Equal(t, RoleCreator, RoleBrand.Opposite())
	assert.Equal(t, RoleBrand, RoleCreator.Opposite())
}

func TestDisputeStatusResolved(t *testing.T) {
	assert.False(t, DisputePendingResponse.Resolved())
	assert.False(t, DisputePendingAdminReview.Resolved())
	assert.True(t, DisputeResolvedForBrand.Resolved())
	assert.True(t, DisputeResolvedForCreator.Resolved())
	assert.True(t, DisputeResolvedDismissed.Resolved())
}

func TestHoursSinceDelivery(t *testing.T) {
	now := time.Now()

	b := &Booking{}
	assert.Equal(t, float64(-1), b.HoursSinceDelivery(now))

	delivered := now.Add(-50 * time.Hour)
	b.DeliveredAt = &delivered
	assert.InDelta(t, 50.0, b.HoursSinceDelivery(now), 0.001)
}

func TestDisputeCaseResponder(t *testing.T) {
	c := &DisputeCase{
		Dispute:     Dispute{OpenedBy: RoleBrand},
		BrandID:     10,
		BrandName:   "Acme",
		CreatorID:   20,
		CreatorName: "Ivy",
	}

	// Opened by the brand: the creator owes the response.
	assert.Equal(t, RoleCreator, c.Responder())
	assert.Equal(t, int64(20), c.ResponderID())
	assert.Equal(t, "Ivy", c.ResponderName())
	assert.Equal(t, "Acme", c.OpenerName())

	c.OpenedBy = RoleCreator
	assert.Equal(t, int64(10), c.ResponderID())
	assert.Equal(t, "Acme", c.ResponderName())
	assert.Equal(t, "Ivy", c.OpenerName())
}
