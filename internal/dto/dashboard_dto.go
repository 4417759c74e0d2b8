package dto

import "time"

// BandCounts tallies submissions per similarity band.
type BandCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Unscored int `json:"unscored"`
}

// DashboardSummary counts the submissions visible to the caller.
type DashboardSummary struct {
	Total            int        `json:"total"`
	Open             int        `json:"open"`
	Approved         int        `json:"approved"`
	Rejected         int        `json:"rejected"`
	AwaitingLecturer int        `json:"awaiting_lecturer"`
	AwaitingFinal    int        `json:"awaiting_final"`
	Bands            BandCounts `json:"bands"`
}

// DashboardResponse is the landing page payload for every role.
type DashboardResponse struct {
	Role            string           `json:"role"`
	Summary         DashboardSummary `json:"summary"`
	Supervisors     []UserSummary    `json:"supervisors,omitempty"`
	Supervisees     []UserSummary    `json:"supervisees,omitempty"`
	PendingAccounts *int             `json:"pending_accounts,omitempty"`
	Recent          []SubmissionView `json:"recent"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
