package postprocess

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// File extensions of the artifacts
const (
	ExtMP4 = ".mp4"
	ExtM4V = ".m4v"
	ExtM4A = ".m4a"
	ExtSRT = ".srt"

	MergedSuffix = "_merged"
	BurnedSuffix = "_burned"
)

// DefaultSubtitleLanguages orders subtitle tracks: simplified Chinese first
var DefaultSubtitleLanguages = []string{"zh-Hans", "zh-Hant", "zh"}

var languageTagPattern = regexp.MustCompile(`\.([a-z]{2,3}(?:-[A-Za-z]{2,4})?)(?:\.|$)`)

// Artifacts are the classified files of a download. Paths are absolute
// within the work directory; Audio and Subtitle may be empty.
type Artifacts struct {
	Video            string
	Audio            string
	Subtitle         string
	SubtitleLanguage string
}

// Paths returns the non-empty artifact paths
func (a Artifacts) Paths() []string {
	var paths []string
	for _, p := range []string{a.Video, a.Audio, a.Subtitle} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// SubtitleLanguagePreference returns the subtitle languages to look for,
// most wanted first.
func SubtitleLanguagePreference(preferred string) []string {
	langs := []string{}
	if preferred != "" {
		langs = append(langs, preferred)
	}
	if preferred == "" || strings.HasPrefix(preferred, "zh") {
		for _, l := range DefaultSubtitleLanguages {
			if l != preferred {
				langs = append(langs, l)
			}
		}
	}
	return langs
}

// Discover classifies the files of dir whose names contain stem.
// Only the video is mandatory. Results depend only on the directory listing.
func Discover(fs afero.Fs, dir, stem string, languages []string) (Artifacts, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return Artifacts{}, &ArtifactDiscoveryError{Dir: dir, Reason: ReasonNoVideo, Err: err}
	}
	if len(languages) == 0 {
		languages = DefaultSubtitleLanguages
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.Contains(entry.Name(), stem) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var (
		videos, audios []string
		subtitle       string
		subtitleLang   string
		bestRank       = -1
	)
	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		rest := name[strings.Index(name, stem)+len(stem):]

		switch ext {
		case ExtMP4, ExtM4V:
			base := strings.TrimSuffix(rest, filepath.Ext(name))
			if languageTag(base) != "" || strings.HasSuffix(base, MergedSuffix) || strings.HasSuffix(base, BurnedSuffix) {
				continue
			}
			videos = append(videos, name)
		case ExtM4A:
			audios = append(audios, name)
		default:
			lang, rank := subtitleRank(rest, ext, languages)
			if rank < 0 {
				continue
			}
			if bestRank < 0 || rank < bestRank {
				subtitle, subtitleLang, bestRank = name, lang, rank
			}
		}
	}

	video := pick(videos, stem, ExtMP4, ExtM4V)
	if video == "" {
		return Artifacts{}, &ArtifactDiscoveryError{Dir: dir, Reason: ReasonNoVideo}
	}

	a := Artifacts{
		Video:            filepath.Join(dir, video),
		SubtitleLanguage: subtitleLang,
	}
	if audio := pick(audios, stem, ExtM4A); audio != "" {
		a.Audio = filepath.Join(dir, audio)
	}
	if subtitle != "" {
		a.Subtitle = filepath.Join(dir, subtitle)
	}
	return a, nil
}

// subtitleRank orders subtitle candidates: language preference first,
// then .srt before extensionless files. -1 means not a wanted subtitle.
func subtitleRank(rest, ext string, languages []string) (string, int) {
	isSRT := ext == ExtSRT
	if isSRT {
		rest = strings.TrimSuffix(rest, filepath.Ext(rest))
	}

	lang := languageTag(rest)
	if lang == "" {
		// untagged .srt is a last resort, untagged anything else is not a subtitle
		if isSRT && rest == "" {
			return "", 2 * len(languages)
		}
		return "", -1
	}
	if !isSRT && "."+lang != rest {
		return "", -1
	}

	for i, l := range languages {
		if strings.EqualFold(l, lang) {
			rank := 2 * i
			if !isSRT {
				rank++
			}
			return lang, rank
		}
	}
	return "", -1
}

func languageTag(s string) string {
	m := languageTagPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// pick prefers the exact stem name, then the first name in sort order
func pick(names []string, stem string, exts ...string) string {
	for _, ext := range exts {
		for _, name := range names {
			if name == stem+ext {
				return name
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (a Artifacts) String() string {
	return fmt.Sprintf("video=%q audio=%q subtitle=%q", filepath.Base(a.Video), base(a.Audio), base(a.Subtitle))
}

func base(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}
