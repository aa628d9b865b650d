package domain

import "time"

// FraudReport is emitted when a user reports an alert as fraud.
type FraudReport struct {
	ID         string     `json:"id"`
	AlertID    string     `json:"alertId"`
	UnitID     string     `json:"unitId"`
	Platform   string     `json:"platform"`
	URL        string     `json:"url"`
	RiskTier   RiskTier   `json:"riskTier"`
	SourceTier SourceTier `json:"sourceTier"`
	Confidence float64    `json:"confidence"`
	Indicators []string   `json:"indicators"`
	ReportedAt time.Time  `json:"reportedAt"`
}
