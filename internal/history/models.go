package history

import "time"

// RunRecord is one repository's outcome for a single orchestrator cycle.
type RunRecord struct {
	ID                  int64
	Repo                string
	StartedAt           time.Time
	EndedAt             *time.Time
	Network             int
	LocalCopied         int
	Corrupted           int
	Failed              int
	Skipped             int
	MetadataRegenerated bool
	ErrorMessage        string
}
