package contacts

import (
	"math"
	"time"
)

// Relevance is a weighted blend of four [0,1] signals. The weights sum to 1
// so the score itself stays in [0,1].
const (
	weightRecency      = 0.35
	weightFrequency    = 0.30
	weightDiversity    = 0.20
	weightCompleteness = 0.15

	// recencyHalfLife halves the recency signal every 30 days since
	// last_seen.
	recencyHalfLife = 30 * 24 * time.Hour

	// frequencySaturation is the total event count at which the frequency
	// signal reaches 1.
	frequencySaturation = 100

	// mentionKinds is the number of distinct mention types the diversity
	// signal normalizes against.
	mentionKinds = 6
)

// Snapshot is the scoring view of a contact.
type Snapshot struct {
	LastSeen        time.Time
	TotalEventCount int
	EventTypeCount  int
	HasGivenName    bool
	HasFamilyName   bool
}

// Score computes the relevance of a contact as observed at now.
func Score(s Snapshot, now time.Time) float64 {
	recency := 0.0
	if !s.LastSeen.IsZero() {
		age := now.Sub(s.LastSeen)
		if age < 0 {
			age = 0
		}
		recency = math.Exp2(-age.Hours() / recencyHalfLife.Hours())
	}

	frequency := math.Log1p(float64(s.TotalEventCount)) / math.Log1p(frequencySaturation)
	if frequency > 1 {
		frequency = 1
	}

	diversity := float64(s.EventTypeCount) / mentionKinds
	if diversity > 1 {
		diversity = 1
	}

	completeness := 0.0
	if s.HasGivenName {
		completeness += 0.5
	}
	if s.HasFamilyName {
		completeness += 0.5
	}

	return weightRecency*recency +
		weightFrequency*frequency +
		weightDiversity*diversity +
		weightCompleteness*completeness
}
