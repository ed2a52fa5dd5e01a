package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Plan tiers form a closed set.
const (
	TierPro   = "pro"
	TierUltra = "ultra"
	TierMax   = "max"
)

// TenureMonthly renews every month; any other tenure renews yearly.
const (
	TenureMonthly = "monthly"
	TenureYear    = "year"
)

// MembershipPlan is a catalog entry consulted when ordering and reconciling.
type MembershipPlan struct {
	ID        string    `json:"id"`
	Tier      string    `json:"tier"`
	Price     string    `json:"price"` // major units, e.g. "499.00"
	Tenure    string    `json:"tenure"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultPlans returns the catalog seeded on first startup.
func DefaultPlans() []MembershipPlan {
	return []MembershipPlan{
		{ID: "pro_plan", Tier: TierPro, Price: "499.00", Tenure: TenureYear},
		{ID: "ultra_plan", Tier: TierUltra, Price: "1499.00", Tenure: TenureYear},
		{ID: "max_plan", Tier: TierMax, Price: "1999.00", Tenure: TenureYear},
	}
}

// IsTier reports whether t is one of the known plan tiers.
func IsTier(t string) bool {
	switch t {
	case TierPro, TierUltra, TierMax:
		return true
	}
	return false
}

// PeriodEnd returns the end of a billing period starting at start.
func PeriodEnd(start time.Time, tenure string) time.Time {
	if tenure == TenureMonthly {
		return start.AddDate(0, 1, 0)
	}
	return start.AddDate(1, 0, 0)
}

// MinorUnits converts a decimal price such as "499.00" into the smallest
// currency unit (49900). At most two fractional digits are accepted.
func MinorUnits(price string) (int64, error) {
	s := strings.TrimSpace(price)
	if s == "" {
		return 0, fmt.Errorf("invalid price %q", price)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("price %q has more than two decimal places", price)
	}
	if !digits(whole) || (frac != "" && !digits(frac)) {
		return 0, fmt.Errorf("invalid price %q", price)
	}
	frac += strings.Repeat("0", 2-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", price, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", price, err)
	}
	if w > (1<<63-1-f)/100 {
		return 0, fmt.Errorf("price %q overflows", price)
	}
	return w*100 + f, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
