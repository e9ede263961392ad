package classifier

import (
	"regexp"
	"strings"
)

// extractor pulls one field out of a harness file name.
// Returns the value and true on a match, or "" and false otherwise.
type extractor func(name string) (string, bool)

// field is an ordered list of extractors with the value used when none of
// them match.
type field struct {
	candidates []extractor
	fallback   string
}

// extract runs the candidates in order and returns the first match.
func (f field) extract(name string) string {
	for _, candidate := range f.candidates {
		if v, ok := candidate(name); ok {
			return v
		}
	}

	return f.fallback
}

var (
	// fileCodePattern matches variant codes such as 32_7a or 123_4.
	fileCodePattern = regexp.MustCompile(`[0-9][0-9][0-9]?_[0-9][a-z]?`)

	// subsystemModulePattern matches a subsystem root through to the last
	// "ko" of the name, e.g. drivers--net--foo.ko.
	subsystemModulePattern = regexp.MustCompile(`(drivers|sound|net|fs).*ko`)

	// subsystemPrefixPattern matches a subsystem root up to the first "--".
	subsystemPrefixPattern = regexp.MustCompile(`((?:drivers|sound|net|fs).*?)--`)

	toolchainVersionPattern = regexp.MustCompile(`linux-[0-9](\.[0-9]+)?`)

	harnessTypePattern = regexp.MustCompile(
		`(main[0-9]*|m[0-9]*|cilled|entry_point.*)_false-unreach-call`,
	)
)

// defaultHarnessType is used when no entry point convention is found.
const defaultHarnessType = "false-unreach-call"

var (
	fileCodeField = field{
		candidates: []extractor{firstMatch(fileCodePattern)},
		fallback:   Unknown,
	}

	subsystemPathField = field{
		candidates: []extractor{subsystemFromModule, subsystemFromPrefix},
		fallback:   Unknown,
	}

	toolchainVersionField = field{
		candidates: []extractor{firstMatch(toolchainVersionPattern)},
		fallback:   Unknown,
	}

	harnessTypeField = field{
		candidates: []extractor{firstMatch(harnessTypePattern)},
		fallback:   defaultHarnessType,
	}
)

func firstMatch(re *regexp.Regexp) extractor {
	return func(name string) (string, bool) {
		m := re.FindString(name)

		return m, m != ""
	}
}

// subsystemFromModule recovers a path that ends in a kernel module name.
// Names using "--" as the separator keep their single hyphens.
func subsystemFromModule(name string) (string, bool) {
	m := subsystemModulePattern.FindString(name)
	if m == "" {
		return "", false
	}

	if strings.Contains(m, "--") {
		m = strings.ReplaceAll(m, "--", "/")
	} else {
		m = strings.ReplaceAll(m, "-", "/")
	}

	return canonicalModuleSuffix(m), true
}

// subsystemFromPrefix recovers the leading part of a path delimited by "--".
func subsystemFromPrefix(name string) (string, bool) {
	m := subsystemPrefixPattern.FindStringSubmatch(name)
	if len(m) < 2 {
		return "", false
	}

	return strings.ReplaceAll(m[1], "-", "/"), true
}

// canonicalModuleSuffix turns a rewritten "-ko" suffix back into ".ko".
func canonicalModuleSuffix(path string) string {
	if strings.HasSuffix(path, "/ko") {
		return strings.TrimSuffix(path, "/ko") + ".ko"
	}

	return path
}

// fileMetadata is the filename-derived part of a HarnessRecord.
type fileMetadata struct {
	fileCode         string
	subsystemPath    string
	toolchainVersion string
	harnessType      string
}

func extractMetadata(name string) fileMetadata {
	return fileMetadata{
		fileCode:         fileCodeField.extract(name),
		subsystemPath:    subsystemPathField.extract(name),
		toolchainVersion: toolchainVersionField.extract(name),
		harnessType:      harnessTypeField.extract(name),
	}
}
