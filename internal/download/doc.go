// Package download implements the download orchestrator: the state machine
// driving one task from key resolution through the downloader run to
// post-processing. It reacts to events ingested from the downloader output,
// propagates task snapshots to the UI and records finished tasks in history.
package download
