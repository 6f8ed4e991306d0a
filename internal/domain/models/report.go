package models

import "time"

// BatchReport is the run-level accounting surfaced after each pipeline run:
// what came in, what was dropped and why, and what was produced. Dropped
// records are counted here rather than failing the batch.
type BatchReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	RecordsIn      int `json:"records_in"`
	Duplicates     int `json:"duplicates"`
	DroppedInvalid int `json:"dropped_invalid"`
	Flagged        int `json:"flagged"`

	// DropReasons counts dropped records per validation rule.
	DropReasons map[string]int `json:"drop_reasons,omitempty"`

	Assets       int `json:"assets"`
	Snapshots    int `json:"snapshots"`
	Anomalies    int `json:"anomalies"`
	Correlations int `json:"correlations"`
	Summaries    int `json:"summaries"`

	// AnomaliesBySeverity counts retained anomalies per severity.
	AnomaliesBySeverity map[Severity]int `json:"anomalies_by_severity,omitempty"`
}
