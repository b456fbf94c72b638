// Package ui contains the Fyne desktop window of the client. It submits
// video descriptors to the download orchestrator and renders the snapshots
// it publishes; it holds no download state of its own.
package ui
