package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mvp-joe/symdex/internal/analyzer"
	"github.com/mvp-joe/symdex/internal/crosscheck"
	"github.com/mvp-joe/symdex/internal/symbols"
)

func main() {
	path := "testdata/rust/src/main.rs"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	res := analyzer.Analyze(analyzer.Unit{ID: path, Source: src})

	fmt.Println("=== ITEMS ===")
	symbols.Walk(res.Root, func(s *symbols.Symbol) bool {
		depth := len(s.Path()) - 1
		if depth < 0 {
			depth = 0
		}
		doc := ""
		if d := s.Doc(); len(d) > 0 {
			doc = fmt.Sprintf("  // %s", strings.TrimSpace(d[0]))
		}
		fmt.Printf("%s%s %s (lines %d-%d)%s\n",
			strings.Repeat("  ", depth), s.Kind, s.Name, s.Range.StartLine, s.Range.EndLine, doc)
		return true
	})

	fmt.Println("\n=== DIAGNOSTICS ===")
	for _, d := range res.Diagnostics {
		fmt.Printf("  %s\n", d)
	}

	report, err := crosscheck.Check(path, src, res.Root)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("\n=== TREE-SITTER ===")
	fmt.Printf("Matched: %d\n", report.Matched)
	for _, e := range report.Missing {
		fmt.Printf("  missing %s %s (line %d)\n", e.Kind, e.Path, e.Line)
	}
	for _, e := range report.Extra {
		fmt.Printf("  extra   %s %s (line %d)\n", e.Kind, e.Path, e.Line)
	}
	for _, s := range report.Shifted {
		fmt.Printf("  shifted %s %s (line %d vs %d)\n", s.Engine.Kind, s.Engine.Path, s.Engine.Line, s.TreeSitter.Line)
	}
}
