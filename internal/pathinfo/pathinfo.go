package pathinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// versionRe matches a version token of the form 'v###' coming just before an
// optional extension and just after a '.', '_', or '-'.
var versionRe = regexp.MustCompile(`(?i)^(.*)([._-])v(\d+)\.?(\S+)?$`)

// frameRe matches a frame number coming just before the extension and just
// after a '.', '_', or '-'.
var frameRe = regexp.MustCompile(`(?i)^(.*)([._-])(\d+)\.([^.]+)$`)

// PublishName returns the display name to use when publishing the given
// path: the version token is stripped and frame numbers are replaced with a
// '#' run so the name stays constant across versions and frames.
func PublishName(path string) string {
	filename := filepath.Base(path)

	if m := frameRe.FindStringSubmatch(filename); m != nil {
		prefix, sep, frame, ext := m[1], m[2], m[3], m[4]
		hashes := strings.Repeat("#", len(frame))
		return fmt.Sprintf("%s%s%s.%s", prefix, sep, hashes, ext)
	}

	if m := versionRe.FindStringSubmatch(filename); m != nil {
		prefix, ext := m[1], m[4]
		if ext != "" {
			return fmt.Sprintf("%s.%s", prefix, ext)
		}
		return prefix
	}

	return filename
}

// VersionNumber extracts the version number from the path's filename.
// Returns 0 and false when no version token is present.
func VersionNumber(path string) (int, bool) {
	m := versionRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	version, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}
	return version, true
}

// FrameNumber extracts the frame number from the path's filename.
// Returns 0 and false when no frame token is present.
func FrameNumber(path string) (int, bool) {
	m := frameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	frame, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}
	return frame, true
}

// PathForFrame replaces the frame number in path with the supplied token,
// e.g. "*" to build a glob or "0042" for a concrete frame. Returns the path
// unchanged when it carries no frame token.
func PathForFrame(path, token string) string {
	filename := filepath.Base(path)
	m := frameRe.FindStringSubmatch(filename)
	if m == nil {
		return path
	}
	prefix, sep, ext := m[1], m[2], m[4]
	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s%s%s.%s", prefix, sep, token, ext))
}

// VersionPath returns the path with its version token replaced by the
// supplied version number, preserving the original padding where possible.
func VersionPath(path string, version int) string {
	filename := filepath.Base(path)
	m := versionRe.FindStringSubmatch(filename)
	if m == nil {
		return path
	}
	prefix, sep, digits, ext := m[1], m[2], m[3], m[4]
	formatted := fmt.Sprintf("v%0*d", len(digits), version)
	name := prefix + sep + formatted
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(filepath.Dir(path), name)
}

// NextVersionPath returns the path with its version token incremented.
// Returns the path unchanged and false when no version token is present.
func NextVersionPath(path string) (string, bool) {
	version, ok := VersionNumber(path)
	if !ok {
		return path, false
	}
	return VersionPath(path, version+1), true
}

// FrameSequence describes a set of files that differ only by frame number.
type FrameSequence struct {
	// Pattern is the sequence path with the frame digits replaced by a
	// '#' run.
	Pattern string
	// Paths are the member files in ascending frame order.
	Paths []string
}

// FrameSequences scans a folder and groups files that form frame sequences.
// Files whose extension is not in extensions are ignored; an empty
// extensions list accepts everything. Single frames still form a sequence of
// one, matching how render output is collected.
func FrameSequences(folder string, extensions []string) ([]FrameSequence, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", folder, err)
	}

	accept := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		accept[strings.ToLower(ext)] = struct{}{}
	}

	type member struct {
		frame int
		path  string
	}
	groups := make(map[string][]member)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(accept) > 0 {
			if _, ok := accept[strings.ToLower(filepath.Ext(name))]; !ok {
				continue
			}
		}
		m := frameRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		prefix, sep, digits, ext := m[1], m[2], m[3], m[4]
		frame, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		pattern := filepath.Join(folder, fmt.Sprintf("%s%s%s.%s", prefix, sep, strings.Repeat("#", len(digits)), ext))
		groups[pattern] = append(groups[pattern], member{frame: frame, path: filepath.Join(folder, name)})
	}

	sequences := make([]FrameSequence, 0, len(groups))
	for pattern, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i].frame < members[j].frame })
		paths := make([]string, len(members))
		for i, m := range members {
			paths[i] = m.path
		}
		sequences = append(sequences, FrameSequence{Pattern: pattern, Paths: paths})
	}
	sort.Slice(sequences, func(i, j int) bool { return sequences[i].Pattern < sequences[j].Pattern })
	return sequences, nil
}

// ExpandTemplate substitutes {field} tokens in a publish path template.
// Unknown tokens are reported as an error naming the missing field so
// configuration problems surface with actionable detail.
func ExpandTemplate(template string, fields map[string]string) (string, error) {
	var out strings.Builder
	remaining := template
	for {
		start := strings.IndexByte(remaining, '{')
		if start < 0 {
			out.WriteString(remaining)
			return out.String(), nil
		}
		end := strings.IndexByte(remaining[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("template %q has an unterminated field", template)
		}
		out.WriteString(remaining[:start])
		name := remaining[start+1 : start+end]
		value, ok := fields[name]
		if !ok || value == "" {
			return "", fmt.Errorf("template %q requires field %q which is not set", template, name)
		}
		out.WriteString(value)
		remaining = remaining[start+end+1:]
	}
}
