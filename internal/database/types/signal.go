package types

import "time"

// TrustProfile holds the flag counters maintained by the trust-signal producers.
type TrustProfile struct {
	UserID         string    `bun:",pk"`
	AIFlags        int       `bun:",notnull"`
	CommunityFlags int       `bun:",notnull"`
	UpdatedAt      time.Time `bun:",notnull"`
}

// ContentReport is a report filed by one user against another.
type ContentReport struct {
	ID             string    `bun:",pk"`
	ReporterID     string    `bun:",notnull"`
	ReportedUserID string    `bun:",notnull"`
	Reason         string    `bun:",type:text"`
	CreatedAt      time.Time `bun:",notnull"`
}

// AnomalyEvent is a single detection from the anomaly feed.
type AnomalyEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	Severity   float64   `json:"severity"` // Normalized to [0,1] by the producer
	DetectedAt time.Time `json:"detectedAt"`
}
