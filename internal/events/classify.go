package events

import (
	"math"
	"strings"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

// Phase markers matched case-insensitively against event messages
var (
	decryptMarkers  = []string{"decrypt", "解密"}
	mergeMarkers    = []string{"merg", "mux", "合并", "混流"}
	completeMarkers = []string{"done", "completed", "finished", "完成"}
)

// Classification is what an event means for the task, in precedence order:
// a failure overrides everything else.
type Classification struct {
	Failed       bool
	ErrorMessage string

	HasProgress bool
	Progress    int // already clamped to [0,100]

	Speed string

	// Phase is a hint derived from message text: Decrypting, Merging or
	// Completed. It never replaces the tool's exit status.
	Phase model.TaskState
}

// Classify interprets e
func Classify(e Event) Classification {
	if e.IsError() {
		return Classification{Failed: true, ErrorMessage: e.Message}
	}

	var c Classification
	if e.Progress != nil {
		c.HasProgress = true
		c.Progress = ClampProgress(*e.Progress)
	}
	c.Speed = e.Speed
	c.Phase = phaseOf(e.Message)
	return c
}

// ClampProgress rounds p to the nearest integer within [0,100]
func ClampProgress(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	r := math.Round(p)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}

func phaseOf(message string) model.TaskState {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, decryptMarkers):
		return model.TaskStateDecrypting
	case containsAny(lower, mergeMarkers):
		return model.TaskStateMerging
	case containsAny(lower, completeMarkers):
		return model.TaskStateCompleted
	default:
		return ""
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
