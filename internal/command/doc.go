// Package command runs the external tools (downloader, muxer, subtitle burner)
// as subprocesses. Tools are named symbolically and resolved to binaries
// through the tools configuration. Cancelling the context passed to Execute
// or Stream kills the whole process tree of the tool.
package command
