package domain

import "time"

// SnapshotTrigger selects what starts a snapshot job.
type SnapshotTrigger string

const (
	SnapshotTriggerManual SnapshotTrigger = "manual"
	SnapshotTriggerCron   SnapshotTrigger = "cron"
	SnapshotTriggerWatch  SnapshotTrigger = "file_watch"
)

// SnapshotJob fetches one entity page and writes the envelope to a file.
type SnapshotJob struct {
	Name      string          `json:"name" mapstructure:"name"`
	Entity    string          `json:"entity" mapstructure:"entity"`
	Filter    string          `json:"filter" mapstructure:"filter"`
	OrderBy   string          `json:"orderBy" mapstructure:"order_by"`
	PageSize  string          `json:"pageSize" mapstructure:"page_size"`
	PageToken string          `json:"pageToken" mapstructure:"page_token"`
	Output    string          `json:"output" mapstructure:"output"`
	Trigger   SnapshotTrigger `json:"trigger" mapstructure:"trigger"`
	Schedule  string          `json:"schedule" mapstructure:"schedule"` // cron spec for cron jobs
	WatchPath string          `json:"watchPath" mapstructure:"watch_path"`
}

// SnapshotRun records one execution of a snapshot job.
type SnapshotRun struct {
	ID         string     `json:"id"`
	JobName    string     `json:"jobName"`
	Status     string     `json:"status"` // "running" | "success" | "error"
	Query      string     `json:"query"`
	Rows       int        `json:"rows"`
	OutputPath string     `json:"outputPath"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	DurationMs int        `json:"durationMs"`
}

// SnapshotRunStore persists snapshot run history.
type SnapshotRunStore interface {
	CreateRun(r *SnapshotRun) error
	UpdateRun(r *SnapshotRun) error
	ListRuns(jobName string, limit int) ([]SnapshotRun, error)
	LastRun(jobName string) (*SnapshotRun, error)
}
