package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/joescharf/cq/internal/models"
)

// Per-severity deductions from the starting score of 100.
var securityDeductions = map[models.Severity]float64{
	models.SeverityLow:      5,
	models.SeverityMedium:   10,
	models.SeverityHigh:     20,
	models.SeverityCritical: 40,
}

var credentialNames = []string{"password", "secret", "key", "token"}

var queryMethods = map[string]bool{
	"Query":           true,
	"QueryRow":        true,
	"QueryContext":    true,
	"QueryRowContext": true,
	"Exec":            true,
	"ExecContext":     true,
}

// ScanSecurity walks the tree once and matches each node against the fixed
// risk-pattern catalogue, in catalogue order per node.
func ScanSecurity(src *Source) []models.SecurityIssue {
	var issues []models.SecurityIssue

	add := func(pos token.Pos, issue models.SecurityIssue) {
		p := src.Fset.Position(pos)
		issue.Location = fmt.Sprintf("%s:%d", src.Filename, p.Line)
		issues = append(issues, issue)
	}

	ast.Inspect(src.File, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.AssignStmt:
			for i, lhs := range node.Lhs {
				ident, ok := lhs.(*ast.Ident)
				if !ok || i >= len(node.Rhs) {
					continue
				}
				if isCredentialName(ident.Name) && isStringLiteral(node.Rhs[i]) {
					add(ident.Pos(), credentialIssue(ident.Name))
				}
			}

		case *ast.ValueSpec:
			for i, name := range node.Names {
				if i >= len(node.Values) {
					break
				}
				if isCredentialName(name.Name) && isStringLiteral(node.Values[i]) {
					add(name.Pos(), credentialIssue(name.Name))
				}
			}

		case *ast.CallExpr:
			if issue, pos, ok := matchCallPattern(node); ok {
				add(pos, issue)
			}

		case *ast.KeyValueExpr:
			if key, ok := node.Key.(*ast.Ident); ok && key.Name == "InsecureSkipVerify" {
				if val, ok := node.Value.(*ast.Ident); ok && val.Name == "true" {
					add(node.Pos(), models.SecurityIssue{
						Severity:       models.SeverityHigh,
						Category:       "tls_verification",
						Description:    "TLS certificate verification is disabled",
						Recommendation: "Remove InsecureSkipVerify or restrict it to test configurations",
						CWEID:          "CWE-295",
						CVSSScore:      7.4,
					})
				}
			}
		}
		return true
	})

	return issues
}

// SecurityScore derives the 0-100 score from the issue list: start at 100,
// deduct per severity, floor at 0. No issues yields exactly 100.
func SecurityScore(issues []models.SecurityIssue) float64 {
	score := 100.0
	for _, issue := range issues {
		score -= securityDeductions[issue.Severity]
	}
	if score < 0 {
		return 0
	}
	return score
}

func credentialIssue(name string) models.SecurityIssue {
	return models.SecurityIssue{
		Severity:       models.SeverityHigh,
		Category:       "credentials",
		Description:    fmt.Sprintf("hardcoded credential assigned to %q", name),
		Recommendation: "Load credentials from the environment or a secrets manager",
		CWEID:          "CWE-798",
		CVSSScore:      7.5,
	}
}

// matchCallPattern checks a call expression against the catalogue:
// dynamic code execution, command construction, and SQL query building.
func matchCallPattern(call *ast.CallExpr) (models.SecurityIssue, token.Pos, bool) {
	name, receiver := calleeName(call)

	// Dynamic code execution (Eval on an interpreter/VM value).
	if strings.EqualFold(name, "eval") {
		return models.SecurityIssue{
			Severity:       models.SeverityCritical,
			Category:       "code_injection",
			Description:    "dynamic code execution via " + callLabel(receiver, name),
			Recommendation: "Do not evaluate runtime-constructed code; use data-driven dispatch instead",
			CWEID:          "CWE-95",
			CVSSScore:      9.8,
		}, call.Pos(), true
	}

	// Shell/command execution with non-constant arguments.
	if receiver == "exec" && (name == "Command" || name == "CommandContext") {
		if hasNonLiteralArg(call) {
			return models.SecurityIssue{
				Severity:       models.SeverityHigh,
				Category:       "command_injection",
				Description:    "command executed with runtime-constructed arguments",
				Recommendation: "Validate or allowlist command arguments before execution",
				CWEID:          "CWE-78",
				CVSSScore:      8.6,
			}, call.Pos(), true
		}
	}

	// SQL query methods fed a concatenated or formatted string.
	if queryMethods[name] && len(call.Args) > 0 && isDynamicString(firstQueryArg(call)) {
		return models.SecurityIssue{
			Severity:       models.SeverityHigh,
			Category:       "sql_injection",
			Description:    "SQL query built by string construction passed to " + callLabel(receiver, name),
			Recommendation: "Use parameterized queries with placeholder arguments",
			CWEID:          "CWE-89",
			CVSSScore:      8.2,
		}, call.Pos(), true
	}

	// Weak hash primitives.
	if (receiver == "md5" || receiver == "sha1") && (name == "New" || name == "Sum") {
		return models.SecurityIssue{
			Severity:       models.SeverityMedium,
			Category:       "weak_hash",
			Description:    "use of weak hash algorithm " + receiver,
			Recommendation: "Use crypto/sha256 or stronger for security-sensitive hashing",
			CWEID:          "CWE-327",
			CVSSScore:      5.3,
		}, call.Pos(), true
	}

	return models.SecurityIssue{}, token.NoPos, false
}

func calleeName(call *ast.CallExpr) (name, receiver string) {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name, ""
	case *ast.SelectorExpr:
		if ident, ok := fn.X.(*ast.Ident); ok {
			return fn.Sel.Name, ident.Name
		}
		return fn.Sel.Name, ""
	}
	return "", ""
}

func callLabel(receiver, name string) string {
	if receiver == "" {
		return name
	}
	return receiver + "." + name
}

func isCredentialName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range credentialNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}

func hasNonLiteralArg(call *ast.CallExpr) bool {
	for _, arg := range call.Args {
		if _, ok := arg.(*ast.BasicLit); !ok {
			return true
		}
	}
	return false
}

// firstQueryArg returns the query-string argument, skipping a leading
// context argument for the *Context variants.
func firstQueryArg(call *ast.CallExpr) ast.Expr {
	name, _ := calleeName(call)
	if strings.HasSuffix(name, "Context") && len(call.Args) > 1 {
		return call.Args[1]
	}
	return call.Args[0]
}

// isDynamicString reports whether an expression builds a string at runtime:
// concatenation involving a non-literal operand, or a fmt.Sprintf call.
func isDynamicString(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		if e.Op != token.ADD {
			return false
		}
		return !isStringLiteral(e.X) || !isStringLiteral(e.Y) || isDynamicString(e.X) || isDynamicString(e.Y)
	case *ast.CallExpr:
		name, receiver := calleeName(e)
		return receiver == "fmt" && name == "Sprintf"
	}
	return false
}
