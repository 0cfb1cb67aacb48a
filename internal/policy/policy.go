package policy

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Tier covers a contiguous hours-before-appointment range and defines what a
// customer may do inside it. MaxHoursBefore is exclusive; nil means unbounded.
type Tier struct {
	MinHoursBefore      float64  `json:"min_hours_before"`
	MaxHoursBefore      *float64 `json:"max_hours_before"`
	CanCancel           bool     `json:"can_cancel"`
	CanReschedule       bool     `json:"can_reschedule"`
	RefundPercentage    int      `json:"refund_percentage"`
	RescheduleFeeSatang int64    `json:"reschedule_fee_satang"`
	Label               string   `json:"label"`
}

// Contains reports whether h falls inside [MinHoursBefore, MaxHoursBefore).
func (t Tier) Contains(h float64) bool {
	if h < t.MinHoursBefore {
		return false
	}
	return t.MaxHoursBefore == nil || h < *t.MaxHoursBefore
}

// Policy is an ordered tier table. It is immutable configuration: loaded once,
// passed by value into every evaluation.
type Policy struct {
	Tiers []Tier `json:"tiers"`
}

// Match returns the first tier containing h, or nil when no tier covers it.
func (p Policy) Match(h float64) *Tier {
	for i := range p.Tiers {
		if p.Tiers[i].Contains(h) {
			return &p.Tiers[i]
		}
	}
	return nil
}

// Validate rejects tables with malformed bounds, overlaps, or out-of-range
// refund percentages. Gaps are allowed: evaluation treats uncovered ranges as
// not cancellable.
func (p Policy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("policy: no tiers configured")
	}
	for i, t := range p.Tiers {
		if t.MinHoursBefore < 0 {
			return fmt.Errorf("policy: tier %d: negative min_hours_before", i)
		}
		if t.MaxHoursBefore != nil && *t.MaxHoursBefore <= t.MinHoursBefore {
			return fmt.Errorf("policy: tier %d: max_hours_before %.1f not above min %.1f", i, *t.MaxHoursBefore, t.MinHoursBefore)
		}
		if t.RefundPercentage < 0 || t.RefundPercentage > 100 {
			return fmt.Errorf("policy: tier %d: refund_percentage %d out of range", i, t.RefundPercentage)
		}
		if t.RescheduleFeeSatang < 0 {
			return fmt.Errorf("policy: tier %d: negative reschedule fee", i)
		}
	}
	ordered := make([]Tier, len(p.Tiers))
	copy(ordered, p.Tiers)
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].MinHoursBefore < ordered[b].MinHoursBefore })
	for i := 1; i < len(ordered); i++ {
		prev := ordered[i-1]
		if prev.MaxHoursBefore == nil || ordered[i].MinHoursBefore < *prev.MaxHoursBefore {
			return fmt.Errorf("policy: tiers %q and %q overlap", prev.Label, ordered[i].Label)
		}
	}
	return nil
}

// Parse decodes a tier table from JSON configuration.
func Parse(raw string) (Policy, error) {
	var p Policy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// Accept a bare tier array as well as the wrapped form.
		if arrErr := json.Unmarshal([]byte(raw), &p.Tiers); arrErr != nil {
			return Policy{}, fmt.Errorf("policy: parse: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Default returns the standard Sabai Home Spa cancellation table:
// under 3 hours no cancellation, 3-24 hours half refund, beyond 24 hours full
// refund. Reschedules open from 3 hours out with a flat fee inside 24 hours.
func Default() Policy {
	upper := func(h float64) *float64 { return &h }
	return Policy{Tiers: []Tier{
		{
			MinHoursBefore:   0,
			MaxHoursBefore:   upper(3),
			CanCancel:        false,
			CanReschedule:    false,
			RefundPercentage: 0,
			Label:            "under 3 hours",
		},
		{
			MinHoursBefore:      3,
			MaxHoursBefore:      upper(24),
			CanCancel:           true,
			CanReschedule:       true,
			RefundPercentage:    50,
			RescheduleFeeSatang: 20000,
			Label:               "3 to 24 hours",
		},
		{
			MinHoursBefore:   24,
			MaxHoursBefore:   nil,
			CanCancel:        true,
			CanReschedule:    true,
			RefundPercentage: 100,
			Label:            "24 hours or more",
		},
	}}
}
