package insight

import (
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/domain/response"
)

// DailyInsight is one clinic-day rollup of classified responses. The row is
// created lazily on the first response of the day and incremented in place
// afterwards; total_responses always equals the sum of the three counters.
type DailyInsight struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ClinicID       uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Date           time.Time `db:"date" json:"date"`
	TotalResponses int       `db:"total_responses" json:"total_responses"`
	FineCount      int       `db:"fine_count" json:"fine_count"`
	MildIssueCount int       `db:"mild_issue_count" json:"mild_issue_count"`
	UrgentCount    int       `db:"urgent_count" json:"urgent_count"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Summary totals a range of daily insights.
type Summary struct {
	TotalResponses int `json:"total_responses"`
	FineCount      int `json:"fine_count"`
	MildIssueCount int `json:"mild_issue_count"`
	UrgentCount    int `json:"urgent_count"`
}

// Dashboard is the insights overview for a clinic.
type Dashboard struct {
	Summary         Summary                 `json:"summary"`
	Insights        []*DailyInsight         `json:"insights"`
	RecentResponses []*response.WithPatient `json:"recent_responses"`
	UrgentCases     []*response.WithPatient `json:"urgent_cases"`
	Period          string                  `json:"period"`
}
