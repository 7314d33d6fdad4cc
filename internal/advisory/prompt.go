package advisory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joescharf/cq/internal/models"
)

// Stage-specific validation criteria. Unknown stages use the default set.
var stageCriteria = map[string]string{
	"product_specs": `1. Are all required fields present and properly defined?
2. Is the scope clear and well-bounded?
3. Are success metrics measurable and relevant?
4. Are technical requirements specific and achievable?
5. Are constraints realistic and well-defined?`,
	"architecture": `1. Does the architecture satisfy all stated requirements?
2. Are the technology choices appropriate?
3. Are all components and their interactions well-defined?
4. Are security and scalability properly addressed?
5. Does it align with established patterns and practices?`,
}

const defaultCriteria = `1. Is the content complete and internally consistent?
2. Is the scope clear and well-bounded?
3. Are requirements specific and achievable?
4. Are risks and constraints identified?`

// buildValidatePrompt constructs the prompts for primary validation.
func buildValidatePrompt(stage string, content, extra map[string]any) (system, user string, err error) {
	criteria, ok := stageCriteria[stage]
	if !ok {
		criteria = defaultCriteria
	}

	system = `You validate development pipeline artifacts. Return ONLY a JSON object with these fields:
- "is_approved": boolean
- "issues": list of strings (each a specific, concrete problem)
- "suggestions": list of strings (constructive improvements)

Rules:
- Approve only when the content fully meets the review criteria
- Every rejection must include at least one concrete issue
- Return valid JSON only, no markdown fencing or explanation`

	contentJSON, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode content: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Validate the following %s artifact:\n\n", stage)
	sb.Write(contentJSON)
	sb.WriteString("\n\nReview criteria:\n")
	sb.WriteString(criteria)
	if err := appendExtra(&sb, extra); err != nil {
		return "", "", err
	}
	return system, sb.String(), nil
}

// buildCrossValidatePrompt constructs the prompts for one role's review.
func buildCrossValidatePrompt(role models.Role, content, extra map[string]any) (system, user string, err error) {
	system = fmt.Sprintf(`You review development pipeline artifacts from the perspective of a %s, applying that role's specific concerns and expertise. Return ONLY a JSON object with these fields:
- "concerns": list of strings (specific issues or potential problems; empty if none)
- "suggestions": list of strings (constructive improvements)

Rules:
- Raise a concern only for a problem that should block approval
- Return valid JSON only, no markdown fencing or explanation`, strings.ReplaceAll(string(role), "_", " "))

	contentJSON, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode content: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Review this content:\n\n")
	sb.Write(contentJSON)
	if err := appendExtra(&sb, extra); err != nil {
		return "", "", err
	}
	return system, sb.String(), nil
}

// buildReviewPrompt constructs the prompts for qualitative code review.
func buildReviewPrompt(code string, files []string) (system, user string) {
	system = `You review code for quality, security, performance, and style. Return ONLY a JSON array of finding objects with these fields:
- "type": short finding identifier (e.g. "error_handling", "naming")
- "severity": one of "low", "medium", "high", "critical"
- "file_path": the file the finding applies to
- "line_number": integer line number (0 if not applicable)
- "code_snippet": the offending code, if short
- "description": what the problem is
- "suggestion": how to fix it
- "category": one of "security", "performance", "style"

Rules:
- Report only concrete, actionable findings
- Reserve "critical" for issues that make the code unsafe to ship
- Return an empty array when the code is clean
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if len(files) > 0 {
		sb.WriteString("Files under review: ")
		sb.WriteString(strings.Join(files, ", "))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Review this code:\n\n")
	sb.WriteString(code)
	return system, sb.String()
}

func appendExtra(sb *strings.Builder, extra map[string]any) error {
	if len(extra) == 0 {
		return nil
	}
	extraJSON, err := json.MarshalIndent(extra, "", "  ")
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	sb.WriteString("\n\nAdditional context:\n")
	sb.Write(extraJSON)
	return nil
}
