package domain

import "time"

// Membership statuses. A row existing does not imply it is active.
const (
	MembershipActive   = "active"
	MembershipCanceled = "canceled"
	MembershipExpired  = "expired"
	MembershipPastDue  = "past_due"
)

// Membership is a user's current subscription tier and billing period.
// There is at most one per user.
type Membership struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Tier               string    `json:"tier"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time `json:"currentPeriodEnd"`
	AutoRenew          bool      `json:"autoRenew"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// IsActive reports whether the membership grants premium access at now.
func (m *Membership) IsActive(now time.Time) bool {
	return m != nil && m.Status == MembershipActive && now.Before(m.CurrentPeriodEnd)
}
