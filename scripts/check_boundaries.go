// Command check_boundaries enforces the layering rules of every service under
// contexts/. It exits non-zero and prints one line per offending import.
package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "crystalgive"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the third-party packages a layer may import in addition to
// its own service packages. Stdlib is always allowed.
type layerRule struct {
	ownLayers  []string
	thirdParty []string
	extra      []string
}

var layerRules = map[string]layerRule{
	"domain": {
		ownLayers: []string{"domain"},
		thirdParty: []string{
			"github.com/shopspring/decimal",
			"github.com/ethereum/go-ethereum/common",
		},
	},
	"ports": {
		ownLayers:  []string{"domain", "ports"},
		thirdParty: []string{"github.com/shopspring/decimal"},
		extra:      []string{modulePath + "/contracts"},
	},
	"application": {
		ownLayers:  []string{"application", "domain", "ports"},
		thirdParty: []string{"github.com/shopspring/decimal"},
		extra:      []string{modulePath + "/contracts"},
	},
}

func main() {
	root := flag.String("root", "contexts", "directory holding bounded contexts")
	flag.Parse()

	violations, err := collectViolations(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk %s: %v\n", *root, err)
		os.Exit(2)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Printf("boundary violations found (%d):\n", len(violations))
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) ([]violation, error) {
	var violations []violation
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 4 {
			return nil
		}
		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[0], parts[1])
		violations = append(violations, validateFile(path, parts[2], servicePrefix)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})
	return violations, nil
}

func validateFile(path string, layer string, servicePrefix string) []violation {
	display := filepath.ToSlash(path)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: display, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		line := fset.Position(imp.Pos()).Line
		for _, rule := range checkImport(layer, importPath, servicePrefix) {
			violations = append(violations, violation{
				File:   display,
				Line:   line,
				Import: importPath,
				Rule:   rule,
			})
		}
	}
	return violations
}

// checkImport returns the rules importPath breaks when imported from layer.
func checkImport(layer string, importPath string, servicePrefix string) []string {
	var broken []string
	if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, servicePrefix) {
		broken = append(broken, "cross-service imports are forbidden")
	}

	rule, ok := layerRules[layer]
	if !ok {
		return broken
	}
	if strings.Contains(importPath, "/adapters/") || strings.HasSuffix(importPath, "/adapters") {
		broken = append(broken, layer+" must not import adapters")
	}
	if hasPrefix(importPath, modulePath+"/internal") {
		broken = append(broken, layer+" must not import runtime infrastructure")
	}
	if isStdlib(importPath) {
		return broken
	}

	allowed := append([]string{}, rule.thirdParty...)
	allowed = append(allowed, rule.extra...)
	for _, own := range rule.ownLayers {
		allowed = append(allowed, servicePrefix+"/"+own)
	}
	if !isAllowed(importPath, allowed) {
		broken = append(broken, layer+" import is outside explicit allowlist")
	}
	return broken
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
