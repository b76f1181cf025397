package models

import "time"

type Dispute struct {
	ID                 string        `json:"id"`
	BookingID          int64         `json:"booking_id"`
	OpenedBy           PartyRole     `json:"opened_by"`
	Status             DisputeStatus `json:"status"`
	Reason             string        `json:"reason"`
	ResponseDeadline   time.Time     `json:"response_deadline"`
	ResolutionDeadline *time.Time    `json:"resolution_deadline,omitempty"`
	ReminderSentDay2   bool          `json:"reminder_sent_day2"`
	ReminderSentDay3   bool          `json:"reminder_sent_day3"`
	EscalatedToAdmin   bool          `json:"escalated_to_admin"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Responder is the party that owes a reply: the opposite of whoever
// opened the dispute.
func (d *Dispute) Responder() PartyRole {
	return d.OpenedBy.Opposite()
}

// HoursUntilResponseDeadline returns fractional hours remaining before
// the responder's deadline; negative once the deadline has lapsed.
func (d *Dispute) HoursUntilResponseDeadline(now time.Time) float64 {
	return d.ResponseDeadline.Sub(now).Hours()
}

// DisputeCase is a dispute joined with the identities needed to target
// notifications, as returned by the store scan.
type DisputeCase struct {
	Dispute
	BrandID      int64  `json:"brand_id"`
	BrandName    string `json:"brand_name"`
	BrandEmail   string `json:"brand_email"`
	CreatorID    int64  `json:"creator_id"`
	CreatorName  string `json:"creator_name"`
	CreatorEmail string `json:"creator_email"`
}

// ResponderEmail resolves the responder role to an email address.
func (c *DisputeCase) ResponderEmail() string {
	if c.Responder() == RoleBrand {
		return c.BrandEmail
	}
	return c.CreatorEmail
}

// ResponderID resolves the responder role to a user id.
func (c *DisputeCase) ResponderID() int64 {
	if c.Responder() == RoleBrand {
		return c.BrandID
	}
	return c.CreatorID
}

// ResponderName resolves the responder role to a display name.
func (c *DisputeCase) ResponderName() string {
	if c.Responder() == RoleBrand {
		return c.BrandName
	}
	return c.CreatorName
}

// OpenerName resolves the opening party to a display name.
func (c *DisputeCase) OpenerName() string {
	if c.OpenedBy == RoleBrand {
		return c.BrandName
	}
	return c.CreatorName
}
