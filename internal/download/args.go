package download

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

// ErrInvalidDescriptor is returned when downloader arguments cannot be built
var ErrInvalidDescriptor = errors.New("invalid video descriptor")

// Downloader flags
const (
	FlagSaveDir      = "--save-dir"
	FlagSaveName     = "--save-name"
	FlagTmpDir       = "--tmp-dir"
	FlagThreadCount  = "--thread-count"
	FlagAutoSelect   = "--auto-select"
	FlagDropSubtitle = "--drop-subtitle"
	FlagBinaryMerge  = "--binary-merge"
	FlagNoANSIColor  = "--no-ansi-color"
	FlagNoLog        = "--no-log"
	FlagLogLevel     = "--log-level"
	FlagKey          = "--key"

	LogLevelInfo       = "INFO"
	DefaultThreadCount = 16
)

// SubtitleLanguages are the subtitle tracks the downloader may offer.
// All but the preferred one are dropped.
var SubtitleLanguages = []string{"de", "es", "fr", "hi", "id", "ja", "ko", "pt", "vi", "en", "zh-Hant", "zh-Hans"}

// ArgsInput is everything the downloader arguments are built from
type ArgsInput struct {
	ManifestURL      string
	SaveDir          string
	SaveName         string
	TmpDir           string
	ThreadCount      int
	SubtitleLanguage string
	Keys             []model.ContentKey
}

// BuildArgs builds the downloader argument vector. The manifest URL is
// always first; the tool reads it positionally.
func BuildArgs(in ArgsInput) ([]string, error) {
	if strings.TrimSpace(in.ManifestURL) == "" {
		return nil, fmt.Errorf("%w: manifest URL is empty", ErrInvalidDescriptor)
	}
	if strings.TrimSpace(in.SaveName) == "" {
		return nil, fmt.Errorf("%w: save name is empty", ErrInvalidDescriptor)
	}
	if in.SaveDir == "" || in.TmpDir == "" {
		return nil, fmt.Errorf("%w: save and temp directories are required", ErrInvalidDescriptor)
	}

	threads := in.ThreadCount
	if threads <= 0 {
		threads = DefaultThreadCount
	}

	args := []string{
		in.ManifestURL,
		FlagSaveDir, in.SaveDir,
		FlagSaveName, in.SaveName,
		FlagTmpDir, in.TmpDir,
		FlagThreadCount, strconv.Itoa(threads),
		FlagAutoSelect,
		FlagDropSubtitle, dropSubtitleFilter(in.SubtitleLanguage),
		FlagBinaryMerge,
		FlagNoANSIColor,
		FlagNoLog,
		FlagLogLevel, LogLevelInfo,
	}
	for _, k := range in.Keys {
		args = append(args, FlagKey, k.String())
	}
	return args, nil
}

// dropSubtitleFilter keeps only the preferred subtitle language
func dropSubtitleFilter(preferred string) string {
	drop := make([]string, 0, len(SubtitleLanguages))
	for _, lang := range SubtitleLanguages {
		if !strings.EqualFold(lang, preferred) {
			drop = append(drop, lang)
		}
	}
	return "lang=" + strings.Join(drop, "|") + ":for=all"
}

// MaskArgs returns args with key values truncated, for logging
func MaskArgs(args []string) []string {
	masked := make([]string, len(args))
	copy(masked, args)
	for i := 0; i+1 < len(masked); i++ {
		if masked[i] != FlagKey {
			continue
		}
		if k, err := model.ParseContentKey(masked[i+1]); err == nil {
			masked[i+1] = k.Masked()
		}
	}
	return masked
}
