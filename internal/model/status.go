package model

// TaskState represents the state of a download task
type TaskState string

const (
	// TaskStateIdle means no task has been submitted or the last one was cancelled
	TaskStateIdle TaskState = "Idle"

	// TaskStateResolvingKeys means content keys are being requested from the licensing backend
	TaskStateResolvingKeys TaskState = "ResolvingKeys"

	// TaskStateDownloading means the downloader subprocess is running
	TaskStateDownloading TaskState = "Downloading"

	// TaskStateDecrypting is a label inferred from downloader output while it decrypts segments
	TaskStateDecrypting TaskState = "Decrypting"

	// TaskStateMerging means audio and video are being muxed
	TaskStateMerging TaskState = "Merging"

	// TaskStateBurningSubtitles means subtitles are being burned into the video
	TaskStateBurningSubtitles TaskState = "BurningSubtitles"

	// TaskStateCompleted means the task finished successfully
	TaskStateCompleted TaskState = "Completed"

	// TaskStateFailed means the task failed with an error
	TaskStateFailed TaskState = "Failed"
)

// String returns the string representation of TaskState
func (ts TaskState) String() string {
	return string(ts)
}

// IsActive returns true if the task is between submission and a terminal state
func (ts TaskState) IsActive() bool {
	switch ts {
	case TaskStateResolvingKeys, TaskStateDownloading, TaskStateDecrypting,
		TaskStateMerging, TaskStateBurningSubtitles:
		return true
	}
	return false
}

// IsFinished returns true if the task is in a terminal state (completed or failed)
func (ts TaskState) IsFinished() bool {
	return ts == TaskStateCompleted || ts == TaskStateFailed
}

// IsDownloadPhase returns true for the states that belong to the downloader run,
// including the labels inferred from its output.
func (ts TaskState) IsDownloadPhase() bool {
	return ts == TaskStateDownloading || ts == TaskStateDecrypting || ts == TaskStateMerging
}
