package models

import "time"

// Action enumerates audited operations.
type Action string

const (
	ActionFileUpload   Action = "FILE_UPLOAD"
	ActionFileDownload Action = "FILE_DOWNLOAD"
	ActionFileDelete   Action = "FILE_DELETE"
	ActionListFiles    Action = "LIST_FILES"
)

// ActivityLogEntry is an append-only audit record. Details holds a JSON object
// serialised to a string.
type ActivityLogEntry struct {
	LogID     string    `json:"logId" dynamodbav:"logId"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
	Action    Action    `json:"action" dynamodbav:"action"`
	Details   string    `json:"details" dynamodbav:"details"`
}
