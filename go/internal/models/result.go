package models

import (
	"github.com/google/uuid"
)

// TestResult is the payload submitted to the backend when a typing
// attempt completes.
type TestResult struct {
	Username    string  `json:"username" validate:"required,max=20"`
	Wpm         int     `json:"wpm" validate:"gte=0"`
	RawWpm      int     `json:"rawWpm" validate:"gte=0"`
	Accuracy    int     `json:"accuracy" validate:"gte=0,lte=100"`
	Consistency int     `json:"consistency" validate:"gte=0,lte=100"`
	TimeSpent   float64 `json:"timeSpent" validate:"gte=0"`
	TextID      string  `json:"textId" validate:"required"`
	ErrorCount  int     `json:"errorCount" validate:"gte=0"`
}

// PendingResult ties a completed result to the session that produced
// it. A reset installs a new session ID, so late deliveries can never
// be confused with a newer attempt's result.
type PendingResult struct {
	SessionID uuid.UUID
	Result    TestResult
}
