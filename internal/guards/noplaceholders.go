package guards

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PlaceholderFinding is one forbidden placeholder-token occurrence.
type PlaceholderFinding struct {
	Path  string
	Line  int
	Text  string
	Token string
}

var placeholderTokens = []namedPattern{
	{"TODO", regexp.MustCompile(`(?i)\bTODO\b`)},
	{"FIXME", regexp.MustCompile(`(?i)\bFIXME\b`)},
	{"placeholder", regexp.MustCompile(`(?i)\bplaceholder\b`)},
	{"stub", regexp.MustCompile(`(?i)\bstub\b`)},
	{"not implemented", regexp.MustCompile(`(?i)\bnot implemented\b`)},
}

var defaultPlaceholderDirs = []string{"app", "components", "data", "lib", "src"}

// ScanNoPlaceholders walks each of dirs under root looking for forbidden
// placeholder tokens in source files.
func ScanNoPlaceholders(root string, dirs []string) ([]PlaceholderFinding, error) {
	if dirs == nil {
		dirs = defaultPlaceholderDirs
	}
	var findings []PlaceholderFinding
	for _, d := range dirs {
		base := filepath.Join(root, d)
		if _, err := os.Stat(base); err != nil {
			continue
		}
		err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if skippedDirs[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			for i, line := range strings.Split(string(content), "\n") {
				for _, tok := range placeholderTokens {
					if tok.pattern.MatchString(line) {
						findings = append(findings, PlaceholderFinding{
							Path: path, Line: i + 1, Text: strings.TrimRight(line, "\r"), Token: tok.name,
						})
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}
