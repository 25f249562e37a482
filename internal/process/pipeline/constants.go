package pipeline

import "time"

// Stage names used in logs and metrics.
const (
	StageDownload    = "download"
	StageInformative = "informative"
	StageUnique      = "unique"
	StageSend        = "send"
)

// Log field constants
const (
	LogFieldCorrelationID = "correlation_id"
	LogFieldStage         = "stage"
	LogFieldCount         = "count"
	LogFieldInput         = "input"
	LogFieldOutput        = "output"
	LogFieldSince         = "since"
	LogFieldMsgID         = "msg_id"
)

// DefaultMaxLookback caps how far back ingestion reaches when the last run is old or unknown.
const DefaultMaxLookback = 24 * time.Hour
