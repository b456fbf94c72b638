package postprocess

import (
	"path/filepath"
	"strings"
)

// Encoder settings for subtitle burn-in
const (
	VideoCodec  = "libx264"
	VideoPreset = "medium"
	VideoCRF    = "23"

	FastStartFlag      = "+faststart"
	ProgressPipeTarget = "pipe:2"
)

// BuildMuxArgs builds the muxer arguments joining the first video stream of
// video with the first audio stream of audio without re-encoding.
func BuildMuxArgs(video, audio, output string) []string {
	return []string{
		"-y",                       // Overwrite output file
		"-i", video,                // Video input
		"-i", audio,                // Audio input
		"-map", "0:v:0",            // First video stream of input 0
		"-map", "1:a:0",            // First audio stream of input 1
		"-c", "copy",               // Stream copy, no re-encode
		"-movflags", FastStartFlag, // MP4 optimization
		output,                     // Output file
	}
}

// BuildBurnArgs builds the burner arguments. subtitle is passed to the
// subtitles filter by base name, so the burner must run in its directory.
func BuildBurnArgs(input, subtitle, style, output string) []string {
	filter := "subtitles='" + stripQuotes(filepath.Base(subtitle)) + "'"
	if style != "" {
		filter += ":force_style='" + stripQuotes(style) + "'"
	}

	return []string{
		"-y",                            // Overwrite output file
		"-i", input,                     // Video input
		"-vf", filter,                   // Burn subtitles
		"-c:v", VideoCodec,              // Video codec
		"-preset", VideoPreset,          // Encoding preset
		"-crf", VideoCRF,                // Constant rate factor
		"-c:a", "copy",                  // Keep audio as is
		"-movflags", FastStartFlag,      // MP4 optimization
		"-progress", ProgressPipeTarget, // Progress to stderr
		"-nostats",                      // No stats output
		output,                          // Output file
	}
}

// stripQuotes drops single quotes, they cannot appear in a quoted filter value
func stripQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "")
}
