package storage

import "time"

const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10

	defaultMinConns          int32         = 1
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute

	lastRunFile     = "last_run.json"
	documentExt     = ".json"
	archivePattern  = "message_%d_%d.json"
	filePermissions = 0o644
	dirPermissions  = 0o755
)
