package core

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Template names understood by Library.Render. Each stage has a system and a
// user template; the user templates carry {placeholder} slots.
const (
	TemplateFeaturesSystem   = "features_system"
	TemplateFeaturesUser     = "features_user"
	TemplateTestPointsSystem = "test_points_system"
	TemplateTestPointsUser   = "test_points_user"
	TemplateTestCasesSystem  = "test_cases_system"
	TemplateTestCasesUser    = "test_cases_user"
)

var builtinTemplates = map[string]string{
	TemplateFeaturesSystem: `You are a senior test analyst. You read product requirement documents and break them down into distinct, testable product features.

Reply with JSON only, using exactly this structure:
{"features": [{"id": 1, "name": "...", "description": "..."}]}

Rules:
- Each feature covers one capability a tester could verify independently.
- id starts at 1 and increments.
- name is short; description explains what the feature does in one or two sentences.
- Do not include any text outside the JSON.`,

	TemplateFeaturesUser: `Extract the product features from the following requirements document.

Requirements document:
{prd_text}`,

	TemplateTestPointsSystem: `You are a senior test analyst. Given one product feature, you enumerate the test points a thorough test plan would cover: normal flows, boundary conditions, error handling, and relevant non-functional concerns.

Reply with JSON only, using exactly this structure:
{"test_points": [{"id": 1, "name": "...", "type": "functional", "priority": "High", "description": "...", "precondition": "...", "expected_result": "..."}]}

Rules:
- type is one of: functional, boundary, exception, performance, security, usability.
- priority is High, Medium, or Low.
- id starts at 1 and increments.
- Do not include any text outside the JSON.`,

	TemplateTestPointsUser: `Generate test points for this feature.

Feature: {feature_name}
Description: {feature_description}

Requirements document for context:
{prd_text}`,

	TemplateTestCasesSystem: `You are a senior test engineer. Given one test point, you write executable test cases with concrete steps, test data, and expected results.

Reply with JSON only, using exactly this structure:
{"test_cases": [{"case_id": "TC-001", "title": "...", "priority": "High", "precondition": "...", "test_steps": [{"step": 1, "action": "...", "expected": "..."}], "test_data": "...", "expected_result": "...", "postcondition": "..."}]}

Rules:
- Steps are numbered from 1 and each describes one operator action with its expected observation.
- test_data names the concrete inputs the steps use, or "None".
- Do not include any text outside the JSON.`,

	TemplateTestCasesUser: `Write test cases for this test point.

Feature: {feature_name}
Test point: {test_point_name}
Description: {test_point_description}
Type: {test_point_type}
Priority: {test_point_priority}
Precondition: {test_point_precondition}
Expected result: {test_point_expected_result}

Requirements document for context:
{prd_text}`,
}

// placeholderRe matches {snake_case} slots in a template. Braces in JSON
// examples never match because the character right after '{' is a quote.
var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Library resolves prompt templates. Dir, when set, points at a directory of
// override files named after the template (no extension); anything not found
// there falls back to the builtin text.
type Library struct {
	Dir string
}

// Template returns the raw template text for name.
func (l *Library) Template(name string) (string, error) {
	if l != nil && l.Dir != "" {
		b, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("reading prompt template %s: %w", name, err)
		}
	}
	t, ok := builtinTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	return t, nil
}

// Render substitutes vars into the named template. Placeholders are located
// in the template before substitution, so braces inside the substituted
// values (JSON fragments, code in a PRD) are never re-interpreted. A
// placeholder with no matching var is an error.
func (l *Library) Render(name string, vars map[string]string) (string, error) {
	t, err := l.Template(name)
	if err != nil {
		return "", err
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(t, -1) {
		if _, ok := vars[m[1]]; !ok {
			return "", fmt.Errorf("template %s: no value for placeholder {%s}", name, m[1])
		}
	}
	out := placeholderRe.ReplaceAllStringFunc(t, func(m string) string {
		return vars[m[1:len(m)-1]]
	})
	return out, nil
}
