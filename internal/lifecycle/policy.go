package lifecycle

import "time"

// Policy holds the dispute and cancellation policy constants. Values are
// configuration, not code: main builds one from the environment and tests
// shrink the windows to keep fixtures readable.
type Policy struct {
	// AdminResponseWindow is how long the administrator has to reply before
	// reminders fire. Informational: it never forces a transition.
	AdminResponseWindow time.Duration

	// InterventionWindow is how long a complaint may stay unresolved before
	// the escalator moves it to intervention.
	InterventionWindow time.Duration

	// EarlyCancellationThresholdDays is the membership age below which a
	// cancellation is classified as early.
	EarlyCancellationThresholdDays int

	// EarlyCancellationRestrictionDays bars an early canceller from joining
	// new groups for this many days.
	EarlyCancellationRestrictionDays int

	// FidelityPenaltyCents is the policy-configured penalty carried on a
	// fidelity-locked cancellation result. The engine never computes it.
	FidelityPenaltyCents int64
}

// DefaultPolicy returns the marketplace defaults: 7-day admin response
// window, 14-day intervention window, 5-day early threshold, 30-day
// restriction.
func DefaultPolicy() Policy {
	return Policy{
		AdminResponseWindow:              7 * 24 * time.Hour,
		InterventionWindow:               14 * 24 * time.Hour,
		EarlyCancellationThresholdDays:   5,
		EarlyCancellationRestrictionDays: 30,
	}
}
