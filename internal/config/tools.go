package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Symbolic tool names used by the command dispatcher
const (
	ToolDownloader = "downloader"
	ToolMuxer      = "muxer"
	ToolBurner     = "burner"
)

// Default binaries for each tool
const (
	DefaultDownloaderBinary = "N_m3u8DL-RE"
	DefaultFFmpegBinary     = "ffmpeg"
	DefaultBinDir           = "bin"
)

// Tools maps symbolic tool names to binaries. BinDir is searched before PATH.
type Tools struct {
	BinDir string            `yaml:"bin_dir"`
	Tools  map[string]string `yaml:"tools"`
}

// DefaultTools returns the bundled tool layout
func DefaultTools() Tools {
	return Tools{
		BinDir: DefaultBinDir,
		Tools: map[string]string{
			ToolDownloader: DefaultDownloaderBinary,
			ToolMuxer:      DefaultFFmpegBinary,
			ToolBurner:     DefaultFFmpegBinary,
		},
	}
}

// LoadTools reads the tools file. A missing file yields the defaults;
// entries present in the file override the default of the same name.
func LoadTools(path string) (Tools, error) {
	tools := DefaultTools()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tools, nil
		}
		return tools, fmt.Errorf("cannot read tools file: %w", err)
	}

	var fromFile Tools
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return tools, fmt.Errorf("cannot parse tools file %s: %w", path, err)
	}

	if fromFile.BinDir != "" {
		tools.BinDir = fromFile.BinDir
	}
	for name, binary := range fromFile.Tools {
		if binary != "" {
			tools.Tools[name] = binary
		}
	}

	return tools, nil
}

// Binary returns the configured binary for a tool
func (t Tools) Binary(tool string) (string, bool) {
	binary, ok := t.Tools[tool]
	return binary, ok
}
