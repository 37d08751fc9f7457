package models

import "testing"

func TestComplaintStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ComplaintStatus
		want     bool
	}{
		{ComplaintPending, ComplaintAdminResponded, true},
		{ComplaintPending, ComplaintUserResponded, false},
		{ComplaintPending, ComplaintIntervention, true},
		{ComplaintPending, ComplaintResolved, true},
		{ComplaintPending, ComplaintClosed, false},
		{ComplaintAdminResponded, ComplaintUserResponded, true},
		{ComplaintAdminResponded, ComplaintAdminResponded, false},
		{ComplaintAdminResponded, ComplaintIntervention, true},
		{ComplaintUserResponded, ComplaintAdminResponded, true},
		{ComplaintUserResponded, ComplaintIntervention, true},
		{ComplaintIntervention, ComplaintResolved, true},
		{ComplaintIntervention, ComplaintAdminResponded, false},
		{ComplaintIntervention, ComplaintPending, false},
		{ComplaintResolved, ComplaintClosed, true},
		{ComplaintResolved, ComplaintIntervention, false},
		{ComplaintClosed, ComplaintResolved, false},
		{ComplaintClosed, ComplaintPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestComplaintStatusTerminalAndOpen(t *testing.T) {
	open := []ComplaintStatus{ComplaintPending, ComplaintAdminResponded, ComplaintUserResponded, ComplaintIntervention}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
		if !s.Open() {
			t.Errorf("%s.Open() = false, want true", s)
		}
	}
	for _, s := range []ComplaintStatus{ComplaintResolved, ComplaintClosed} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
		if s.Open() {
			t.Errorf("%s.Open() = true, want false", s)
		}
	}
}

func TestParseComplaintStatus(t *testing.T) {
	if _, err := ParseComplaintStatus("pending"); err != nil {
		t.Errorf("ParseComplaintStatus(pending) failed: %v", err)
	}
	if _, err := ParseComplaintStatus("escalated"); err == nil {
		t.Error("ParseComplaintStatus(escalated) should fail")
	}
	if _, err := ParseComplaintStatus(""); err == nil {
		t.Error("ParseComplaintStatus of empty string should fail")
	}
}

func TestMembershipStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to MembershipStatus
		want     bool
	}{
		{MembershipActive, MembershipCancellationPending, true},
		{MembershipActive, MembershipCancelled, true},
		{MembershipCancellationPending, MembershipCancelled, true},
		{MembershipCancellationPending, MembershipActive, false},
		{MembershipCancelled, MembershipActive, false},
		{MembershipCancelled, MembershipCancellationPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
