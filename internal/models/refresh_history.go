package models

import "time"

// RefreshStatus is the outcome of one refresh attempt
type RefreshStatus string

const (
	RefreshSuccess RefreshStatus = "success"
	RefreshFailure RefreshStatus = "failure"
)

// RefreshRecord is one row of the refresh history
type RefreshRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RefreshStatus
	ErrorKind  string
	Error      string
	ClassCount int
}
