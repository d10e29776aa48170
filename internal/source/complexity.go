package source

import (
	"regexp"
	"sort"

	"github.com/fzipp/gocyclo"
	"golang.org/x/tools/go/packages"
)

// testFilePattern excludes _test.go files from complexity analysis.
var testFilePattern = regexp.MustCompile(`_test\.go$`)

// complexityKey identifies a function declaration site.
type complexityKey struct {
	file string
	line int
}

// complexityByPos computes cyclomatic complexity for every function
// in the package's compiled files and indexes the results by
// declaration file and line.
func complexityByPos(pkg *packages.Package) map[complexityKey]int {
	if len(pkg.CompiledGoFiles) == 0 {
		return nil
	}

	stats := gocyclo.Analyze(pkg.CompiledGoFiles, testFilePattern)

	byPos := make(map[complexityKey]int, len(stats))
	for _, s := range stats {
		byPos[complexityKey{s.Pos.Filename, s.Pos.Line}] = s.Complexity
	}
	return byPos
}

// sortByComplexity orders units most complex first, breaking ties by
// qualified name for deterministic output.
func sortByComplexity(units []*CallableUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Complexity != units[j].Complexity {
			return units[i].Complexity > units[j].Complexity
		}
		return units[i].QualifiedName() < units[j].QualifiedName()
	})
}
