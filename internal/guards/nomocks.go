// Package guards implements the quality scanners the Orchestrator runs
// before a phase is allowed to claim success: a forbidden-mocking-API
// scanner and a placeholder/TODO scanner.
package guards

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MockFinding is one forbidden-mock-API occurrence.
type MockFinding struct {
	Path string
	Line int
	Text string
	Rule string
}

type namedPattern struct {
	name    string
	pattern *regexp.Regexp
}

var jsMockRules = []namedPattern{
	{"vi.mock", regexp.MustCompile(`\bvi\.mock\s*\(`)},
	{"jest.mock", regexp.MustCompile(`\bjest\.mock\s*\(`)},
	{"mockImplementation", regexp.MustCompile(`\bmockImplementation\b`)},
	{"mockReturnValue", regexp.MustCompile(`\bmockReturnValue\b`)},
	{"spyOn", regexp.MustCompile(`\bspyOn\s*\(`)},
	{"sinon", regexp.MustCompile(`\bsinon\b`)},
}

var pyMockRules = []namedPattern{
	{"unittest.mock", regexp.MustCompile(`\bunittest\.mock\b`)},
	{"MagicMock", regexp.MustCompile(`\bMagicMock\b`)},
	{"patch(", regexp.MustCompile(`\bpatch\s*\(`)},
}

var jsExts = map[string]bool{".ts": true, ".tsx": true, ".js": true, ".jsx": true}
var skippedDirs = map[string]bool{"node_modules": true, ".next": true, "dist": true, "build": true}

// ScanNoMocks walks each of dirs under root and reports every forbidden
// mocking-API occurrence in .ts/.tsx/.js/.jsx/.py files.
func ScanNoMocks(root string, dirs []string) ([]MockFinding, error) {
	var findings []MockFinding
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
			ext := strings.ToLower(filepath.Ext(path))
			if !jsExts[ext] && ext != ".py" {
				return nil
			}
			fileFindings, err := scanMockFile(path, ext)
			if err != nil {
				return nil // unreadable/binary files are ignored, not fatal
			}
			findings = append(findings, fileFindings...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}

func scanMockFile(path, ext string) ([]MockFinding, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rules := pyMockRules
	if jsExts[ext] {
		rules = jsMockRules
	}

	var findings []MockFinding
	for i, line := range strings.Split(string(content), "\n") {
		for _, rule := range rules {
			if rule.pattern.MatchString(line) {
				findings = append(findings, MockFinding{Path: path, Line: i + 1, Text: strings.TrimRight(line, "\r"), Rule: rule.name})
			}
		}
	}
	return findings, nil
}
