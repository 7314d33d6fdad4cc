// Package analysis computes objective quality metrics for Go source
// artifacts: raw counts, per-symbol cyclomatic complexity, and the
// security/performance/maintainability scores derived from them.
package analysis

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/joescharf/cq/internal/models"
)

// ParseError indicates the artifact could not be parsed. Analysis of that
// artifact must not proceed to scoring.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Source is one parsed artifact, shared by the extractor and both scanners
// so the tree is built exactly once per analysis run.
type Source struct {
	Filename string
	Text     string
	File     *ast.File
	Fset     *token.FileSet
}

// Parse parses source text into a syntax tree.
func Parse(filename, src string) (*Source, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, &ParseError{File: filename, Err: err}
	}
	return &Source{Filename: filename, Text: src, File: file, Fset: fset}, nil
}

// Extract produces raw metrics from a parsed source: line and comment
// counts from a line scan, dependency import paths, and per-symbol
// cyclomatic complexity. Scores are filled in later by the scanners.
func Extract(src *Source) *models.CodeMetrics {
	total, comments := countLines(src)

	m := &models.CodeMetrics{
		LinesOfCode:  total,
		CommentLines: comments,
		Complexity:   make(map[string]int),
		Dependencies: importPaths(src.File),
	}

	for _, decl := range src.File.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		m.Complexity[symbolName(fn)] = cyclomaticComplexity(fn.Body)
	}

	return m
}

// countLines scans the raw text for the total line count and, using the
// parsed comment groups, the number of lines carrying a comment.
func countLines(src *Source) (total, comments int) {
	total = strings.Count(src.Text, "\n")
	if len(src.Text) > 0 && !strings.HasSuffix(src.Text, "\n") {
		total++
	}

	commentLines := make(map[int]bool)
	for _, group := range src.File.Comments {
		for _, c := range group.List {
			start := src.Fset.Position(c.Pos()).Line
			end := src.Fset.Position(c.End()).Line
			for line := start; line <= end; line++ {
				commentLines[line] = true
			}
		}
	}
	return total, len(commentLines)
}

// importPaths returns the sorted, unique set of imported dependencies.
func importPaths(file *ast.File) []string {
	seen := make(map[string]bool)
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		seen[path] = true
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// symbolName returns the complexity-map key for a function declaration,
// prefixing methods with their receiver type.
func symbolName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	return receiverTypeName(fn.Recv.List[0].Type) + "." + fn.Name.Name
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return "_"
}

// cyclomaticComplexity computes 1 + the number of branch nodes (if, for,
// range, case/comm clauses) + one per short-circuit boolean operator, which
// equals boolean-operand count minus one for each chained condition.
func cyclomaticComplexity(body *ast.BlockStmt) int {
	complexity := 1
	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.CaseClause, *ast.CommClause:
			complexity++
		case *ast.BinaryExpr:
			if node.Op == token.LAND || node.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	return complexity
}
