package evals

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ToolSelector is implemented by an LLM harness or a mock
type ToolSelector interface {
	// SelectTool returns the tool name and arguments chosen for input
	SelectTool(input string) (toolName string, args map[string]any, err error)
}

// ToolSelectionResult is the outcome of one tool selection case
type ToolSelectionResult struct {
	TestID       string
	Input        string
	ExpectedTool string
	ActualTool   string
	Passed       bool
	Errors       []string
}

// ConfusionPairResult is the outcome of one confusion pair case
type ConfusionPairResult struct {
	PairID       string
	TestInput    string
	ExpectedTool string
	ActualTool   string
	Reason       string
	Passed       bool
}

// ArgumentResult is the outcome of one argument correctness case
type ArgumentResult struct {
	TestID       string
	Tool         string
	ActualTool   string
	Input        string
	Passed       bool
	Error        string
	MissingArgs  []string
	WrongArgs    map[string]string // arg -> "expected X, got Y"
	ForbiddenHit []string
}

// EvalMetrics aggregates an evaluation run
type EvalMetrics struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Accuracy      float64
	ByCategory    map[string]*CategoryMetrics
	ByTool        map[string]*ToolMetrics
	FailedDetails []string
}

// CategoryMetrics counts results per category
type CategoryMetrics struct {
	Total  int
	Passed int
	Failed int
}

// ToolMetrics counts selections per tool
type ToolMetrics struct {
	ExpectedCount  int // times tool was expected
	SelectedCount  int // times tool was actually selected
	CorrectCount   int
	FalsePositives int // selected when another tool was expected
	FalseNegatives int // expected but another tool was selected
}

func newMetrics() *EvalMetrics {
	return &EvalMetrics{
		ByCategory: make(map[string]*CategoryMetrics),
		ByTool:     make(map[string]*ToolMetrics),
	}
}

func (m *EvalMetrics) category(name string) *CategoryMetrics {
	c, ok := m.ByCategory[name]
	if !ok {
		c = &CategoryMetrics{}
		m.ByCategory[name] = c
	}
	return c
}

func (m *EvalMetrics) tool(name string) *ToolMetrics {
	t, ok := m.ByTool[name]
	if !ok {
		t = &ToolMetrics{}
		m.ByTool[name] = t
	}
	return t
}

// recordSelection updates tool counters for one expected/actual pair
func (m *EvalMetrics) recordSelection(expected, actual string) {
	m.tool(expected).ExpectedCount++
	m.tool(actual).SelectedCount++
	if expected == actual {
		m.tool(expected).CorrectCount++
		return
	}
	m.tool(expected).FalseNegatives++
	m.tool(actual).FalsePositives++
}

// recordOutcome updates pass/fail counters for category
func (m *EvalMetrics) recordOutcome(category string, passed bool, detail string) {
	m.TotalTests++
	c := m.category(category)
	c.Total++
	if passed {
		m.PassedTests++
		c.Passed++
		return
	}
	m.FailedTests++
	c.Failed++
	m.FailedDetails = append(m.FailedDetails, detail)
}

func (m *EvalMetrics) finish() {
	if m.TotalTests > 0 {
		m.Accuracy = float64(m.PassedTests) / float64(m.TotalTests)
	}
}

// EvaluateToolSelection runs tool selection tests against a selector
func EvaluateToolSelection(suite *ToolSelectionSuite, selector ToolSelector) (*EvalMetrics, []ToolSelectionResult) {
	metrics := newMetrics()
	results := make([]ToolSelectionResult, 0, len(suite.Tests))

	for _, test := range suite.Tests {
		actualTool, actualArgs, err := selector.SelectTool(test.Input)

		result := ToolSelectionResult{
			TestID:       test.ID,
			Input:        test.Input,
			ExpectedTool: test.ExpectedTool,
			ActualTool:   actualTool,
		}

		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("selector error: %v", err))
		}
		if actualTool != test.ExpectedTool {
			result.Errors = append(result.Errors,
				fmt.Sprintf("wrong tool: expected %s, got %s", test.ExpectedTool, actualTool))
		}
		for _, forbidden := range test.NotTools {
			if actualTool == forbidden {
				result.Errors = append(result.Errors, fmt.Sprintf("selected forbidden tool: %s", forbidden))
			}
		}
		for _, key := range sortedKeys(test.ExpectedArgs) {
			expected := test.ExpectedArgs[key]
			actual, ok := actualArgs[key]
			switch {
			case !ok:
				result.Errors = append(result.Errors, fmt.Sprintf("missing arg %s (expected %v)", key, expected))
			case !compareValues(expected, actual):
				result.Errors = append(result.Errors,
					fmt.Sprintf("wrong arg %s: expected %v, got %v", key, expected, actual))
			}
		}
		result.Passed = len(result.Errors) == 0

		metrics.recordSelection(test.ExpectedTool, actualTool)
		metrics.recordOutcome(test.Category, result.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(result.Errors, "; ")))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

// EvaluateConfusionPairs runs confusion pair tests against a selector.
// Each pair ID is reported as a category.
func EvaluateConfusionPairs(suite *ConfusionPairSuite, selector ToolSelector) (*EvalMetrics, []ConfusionPairResult) {
	metrics := newMetrics()
	var results []ConfusionPairResult

	for _, pair := range suite.Pairs {
		for _, test := range pair.Tests {
			actualTool, _, err := selector.SelectTool(test.Input)

			result := ConfusionPairResult{
				PairID:       pair.ID,
				TestInput:    test.Input,
				ExpectedTool: test.Expected,
				ActualTool:   actualTool,
				Reason:       test.Reason,
				Passed:       err == nil && actualTool == test.Expected,
			}

			metrics.recordSelection(test.Expected, actualTool)
			metrics.recordOutcome(pair.ID, result.Passed,
				fmt.Sprintf("[%s] %s: expected %s, got %s (%s)",
					pair.ID, test.Input, test.Expected, actualTool, test.Reason))
			results = append(results, result)
		}
	}

	metrics.finish()
	return metrics, results
}

// EvaluateArguments runs argument correctness tests against a selector.
// Each tool is reported as a category; picking the wrong tool fails the case.
func EvaluateArguments(suite *ArgumentSuite, selector ToolSelector) (*EvalMetrics, []ArgumentResult) {
	metrics := newMetrics()
	results := make([]ArgumentResult, 0, len(suite.Tests))

	for _, test := range suite.Tests {
		result := checkArguments(test, selector)

		var details []string
		if result.Error != "" {
			details = append(details, result.Error)
		}
		if len(result.MissingArgs) > 0 {
			details = append(details, fmt.Sprintf("missing: %v", result.MissingArgs))
		}
		for _, k := range sortedKeys(result.WrongArgs) {
			details = append(details, fmt.Sprintf("%s: %s", k, result.WrongArgs[k]))
		}
		if len(result.ForbiddenHit) > 0 {
			details = append(details, fmt.Sprintf("forbidden: %v", result.ForbiddenHit))
		}

		metrics.recordOutcome(test.Tool, result.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(details, "; ")))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

func checkArguments(test ArgumentTest, selector ToolSelector) ArgumentResult {
	result := ArgumentResult{
		TestID:    test.ID,
		Tool:      test.Tool,
		Input:     test.Input,
		WrongArgs: make(map[string]string),
	}

	actualTool, actualArgs, err := selector.SelectTool(test.Input)
	result.ActualTool = actualTool
	if err != nil {
		result.Error = fmt.Sprintf("selector error: %v", err)
		return result
	}
	if actualTool != test.Tool {
		result.Error = fmt.Sprintf("wrong tool: expected %s, got %s", test.Tool, actualTool)
		return result
	}

	for _, name := range test.RequiredArgs {
		if _, ok := actualArgs[name]; !ok {
			result.MissingArgs = append(result.MissingArgs, name)
		}
	}
	for _, key := range sortedKeys(test.ExpectedArgs) {
		expected := test.ExpectedArgs[key]
		actual, ok := actualArgs[key]
		if !ok {
			if !containsString(result.MissingArgs, key) {
				result.MissingArgs = append(result.MissingArgs, key)
			}
			continue
		}
		if !compareValues(expected, actual) {
			result.WrongArgs[key] = fmt.Sprintf("expected %v, got %v", expected, actual)
		}
	}
	for _, forbidden := range test.ForbiddenArgs {
		if _, ok := actualArgs[forbidden]; ok {
			result.ForbiddenHit = append(result.ForbiddenHit, forbidden)
		}
	}

	result.Passed = len(result.MissingArgs) == 0 && len(result.WrongArgs) == 0 && len(result.ForbiddenHit) == 0
	return result
}

// compareValues compares decoded JSON values loosely: numbers compare by
// value whatever their Go type, and strings compare case-insensitively so
// "de" matches an upper-cased country code.
func compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}

	if es, ok := expected.(string); ok {
		as, ok := actual.(string)
		return ok && strings.EqualFold(strings.TrimSpace(es), strings.TrimSpace(as))
	}

	ev := reflect.ValueOf(expected)
	av := reflect.ValueOf(actual)

	if ev.Kind() == reflect.Slice && av.Kind() == reflect.Slice {
		if ev.Len() != av.Len() {
			return false
		}
		for i := 0; i < ev.Len(); i++ {
			if !compareValues(ev.Index(i).Interface(), av.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	if em, ok := expected.(map[string]any); ok {
		am, ok := actual.(map[string]any)
		if !ok || len(em) != len(am) {
			return false
		}
		for k, v := range em {
			if !compareValues(v, am[k]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

// FormatMetrics renders metrics as a plain-text report
func FormatMetrics(metrics *EvalMetrics, suiteName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", suiteName)
	fmt.Fprintf(&b, "Total: %d tests\n", metrics.TotalTests)
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n", metrics.PassedTests, metrics.Accuracy*100)
	fmt.Fprintf(&b, "Failed: %d\n", metrics.FailedTests)

	if len(metrics.ByCategory) > 0 {
		b.WriteString("\nBy Category:\n")
		for _, cat := range sortedKeys(metrics.ByCategory) {
			m := metrics.ByCategory[cat]
			if m.Total > 0 {
				acc := float64(m.Passed) / float64(m.Total) * 100
				fmt.Fprintf(&b, "  %-25s: %d/%d (%.0f%%)\n", cat, m.Passed, m.Total, acc)
			}
		}
	}

	const maxDetails = 10
	details := metrics.FailedDetails
	switch {
	case len(details) == 0:
	case len(details) <= maxDetails:
		b.WriteString("\nFailed Tests:\n")
	default:
		fmt.Fprintf(&b, "\nFailed Tests (showing first %d of %d):\n", maxDetails, len(details))
		details = details[:maxDetails]
	}
	for _, detail := range details {
		fmt.Fprintf(&b, "  - %s\n", detail)
	}

	return b.String()
}
