package command

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/binbin1213/GAGA-Client/internal/config"
)

// ErrUnknownTool is returned for a tool name absent from the configuration
var ErrUnknownTool = errors.New("unknown tool")

// Resolver maps symbolic tool names to executable paths
type Resolver struct {
	tools    config.Tools
	lookPath func(string) (string, error)
}

func NewResolver(tools config.Tools) *Resolver {
	return &Resolver{
		tools:    tools,
		lookPath: exec.LookPath,
	}
}

// Resolve returns the executable for tool. Explicit paths are used as is,
// bare names are looked up in the bundled bin directory first, then in PATH.
func (r *Resolver) Resolve(tool string) (string, error) {
	binary, ok := r.tools.Binary(tool)
	if !ok || binary == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}

	if filepath.IsAbs(binary) || filepath.Base(binary) != binary {
		if !isExecutableFile(binary) {
			return "", fmt.Errorf("%s: %s is not an executable file", tool, binary)
		}
		return binary, nil
	}

	if r.tools.BinDir != "" {
		bundled := filepath.Join(r.tools.BinDir, executableName(binary))
		if isExecutableFile(bundled) {
			return filepath.Abs(bundled)
		}
	}

	path, err := r.lookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%s: %s not found in %s or PATH: %w", tool, binary, r.tools.BinDir, err)
	}
	return path, nil
}

// Available reports whether tool can be resolved to an executable
func (r *Resolver) Available(tool string) bool {
	_, err := r.Resolve(tool)
	return err == nil
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0111 != 0
}
