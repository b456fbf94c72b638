package model

// Package model defines domain data structures shared by the orchestrator, the
// event pipeline and the UI: video descriptors, content keys, task states,
// the mutable download task and its bounded log buffer.
