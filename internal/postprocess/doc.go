// Package postprocess turns the files left by the downloader into the final
// video: it discovers the produced artifacts, waits until they stop growing,
// muxes separate audio, burns subtitles and moves the result into place.
package postprocess
