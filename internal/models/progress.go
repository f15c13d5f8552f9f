package models

import "time"

// StageStatus represents the lifecycle state of a pipeline stage.
type StageStatus string

const (
	StageStarted   StageStatus = "STARTED"
	StageCompleted StageStatus = "COMPLETED"
	// StageDegraded means the stage failed but the pipeline substituted a
	// placeholder and kept going.
	StageDegraded StageStatus = "DEGRADED"
	StageFailed   StageStatus = "FAILED"
)

// StagePipeline is the pseudo-stage name used for run-level events.
const StagePipeline = "pipeline"

// ProgressEvent describes a stage transition during a pipeline run. Events
// are published to the stream hub so CLI and web subscribers can render
// progress live instead of waiting for the final record.
type ProgressEvent struct {
	SessionID string      `json:"session_id"`
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	At        time.Time   `json:"at"`
}

// Terminal reports whether this event ends the run. Subscribers use it to
// know when to stop listening.
func (e ProgressEvent) Terminal() bool {
	return e.Stage == StagePipeline && (e.Status == StageCompleted || e.Status == StageFailed)
}
