package models

import "time"

type Booking struct {
	ID             int64          `json:"id"`
	BrandID        int64          `json:"brand_id"`
	BrandName      string         `json:"brand_name"`
	BrandEmail     string         `json:"brand_email"`
	CreatorID      int64          `json:"creator_id"`
	CreatorName    string         `json:"creator_name"`
	CreatorEmail   string         `json:"creator_email"`
	TotalPrice     int64          `json:"total_price"` // minor currency units
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	Status         BookingStatus  `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int64          `json:"version"`
}

// HoursSinceDelivery returns fractional hours elapsed since delivery,
// or -1 when the booking has no delivery timestamp.
func (b *Booking) HoursSinceDelivery(now time.Time) float64 {
	if b.DeliveredAt == nil {
		return -1
	}
	return now.Sub(*b.DeliveredAt).Hours()
}
