package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type DeliveryStatus string

const (
	DeliveryNotDelivered DeliveryStatus = "not_delivered"
	DeliveryDelivered    DeliveryStatus = "delivered"
	DeliveryConfirmed    DeliveryStatus = "confirmed"
)

type DisputeStatus string

const (
	DisputePendingResponse    DisputeStatus = "pending_response"
	DisputePendingAdminReview DisputeStatus = "pending_admin_review"
	DisputeResolvedForBrand   DisputeStatus = "resolved_brand"
	DisputeResolvedForCreator DisputeStatus = "resolved_creator"
	DisputeResolvedDismissed  DisputeStatus = "resolved_dismissed"
)

// Resolved reports whether the dispute reached a terminal state.
func (s DisputeStatus) Resolved() bool {
	switch s {
	case DisputeResolvedForBrand, DisputeResolvedForCreator, DisputeResolvedDismissed:
		return true
	default:
		return false
	}
}

type PartyRole string

const (
	RoleBrand   PartyRole = "brand"
	RoleCreator PartyRole = "creator"
)

// Opposite returns the other side of an engagement.
func (r PartyRole) Opposite() PartyRole {
	if r == RoleBrand {
		return RoleCreator
	}
	return RoleBrand
}

const (
	// ReviewWindowHours is the escrow review window after delivery.
	ReviewWindowHours = 72

	// ReviewReminderHour and ReviewFinalWarningHour mark the start of the
	// one-hour windows in which the brand is reminded to review.
	ReviewReminderHour     = 48
	ReviewFinalWarningHour = 71

	// AdminResolutionWindow is granted to admins once a dispute escalates.
	AdminResolutionWindow = 7 * 24 * time.Hour

	// DisputeReminderDay2Hours / Day3Hours bound the flag-gated reminder
	// windows before the dispute response deadline.
	DisputeReminderDay2Hours = 48
	DisputeReminderDay3Hours = 24
)

const (
	NotificationTypeBooking = "booking"
	NotificationTypeDispute = "dispute"
)
