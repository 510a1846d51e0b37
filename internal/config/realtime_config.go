package config

import "time"

const (
	// Handshake
	HandshakeTimeout = 10 * time.Second

	// Typing indicator
	TypingSweepInterval = 5 * time.Second
	TypingTimeout       = 10 * time.Second

	// Conversation history replay on join
	HistoryReplayLimit = 50

	// Reputation
	InitialReputation = 1000
	MinReputation     = 0

	// Suspension
	SuspendThresholdReputation = 500
	SuspendThresholdFrequency  = 5
	SuspendFrequencyWindow     = 24 * time.Hour
	SuspendLevel1Duration      = 30 * time.Minute
	SuspendLevel2Duration      = 6 * time.Hour
	SuspendLevel3Duration      = 24 * time.Hour
)

// ReportWeights maps a report reason to the reputation penalty it carries.
var ReportWeights = map[string]int{
	"spam":       5,
	"harassment": 50,
	"illegal":    250,
}
