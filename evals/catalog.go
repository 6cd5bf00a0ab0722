package evals

import (
	"errors"
	"fmt"

	"github.com/olgasafonova/gleif-mcp-server/internal/base"
	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
)

// RequestBuilder turns tool arguments into an upstream request without sending it
type RequestBuilder interface {
	Catalog() *gleif.Catalog
	BuildRequest(name string, args map[string]any) (base.RequestConfig, error)
}

// Validate checks the suites against the tool catalog. Every referenced tool
// must exist and every required or expected argument must be one the tool
// accepts. Expected arguments must build a valid GLEIF request. Forbidden
// arguments name what a model must not send, so they may be names the tool
// does not accept, but never ones the test also expects.
func (s *Suites) Validate(builder RequestBuilder) error {
	v := &suiteValidator{catalog: builder.Catalog(), builder: builder}

	for _, test := range s.ToolSelection.Tests {
		where := "tool_selection " + test.ID
		if v.tool(where, test.ExpectedTool) {
			v.argNames(where, test.ExpectedTool, sortedKeys(test.ExpectedArgs))
			v.build(where, test.ExpectedTool, test.ExpectedArgs)
		}
		for _, name := range test.NotTools {
			v.tool(where+" not_tools", name)
		}
	}

	for _, pair := range s.ConfusionPairs.Pairs {
		where := "confusion_pairs " + pair.ID
		if len(pair.Tools) < 2 {
			v.addf("%s: a pair needs at least two tools", where)
		}
		for _, name := range pair.Tools {
			v.tool(where, name)
		}
		for _, test := range pair.Tests {
			if !containsString(pair.Tools, test.Expected) {
				v.addf("%s: expected tool %q is not part of the pair", where, test.Expected)
			}
		}
	}

	for _, test := range s.Arguments.Tests {
		where := "argument_correctness " + test.ID
		if !v.tool(where, test.Tool) {
			continue
		}
		v.argNames(where, test.Tool, test.RequiredArgs)
		v.argNames(where, test.Tool, sortedKeys(test.ExpectedArgs))
		v.notExpected(where, test)
		v.build(where, test.Tool, test.ExpectedArgs)
	}

	return errors.Join(v.errs...)
}

// UncoveredTools lists catalog tools that no suite references
func (s *Suites) UncoveredTools(catalog *gleif.Catalog) []string {
	covered := s.ToolCoverage()
	var missing []string
	for _, name := range catalog.Names() {
		if !covered[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

type suiteValidator struct {
	catalog *gleif.Catalog
	builder RequestBuilder
	errs    []error
}

func (v *suiteValidator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *suiteValidator) tool(where, name string) bool {
	if _, ok := v.catalog.Lookup(name); !ok {
		v.addf("%s: unknown tool %q", where, name)
		return false
	}
	return true
}

func (v *suiteValidator) argNames(where, tool string, names []string) {
	desc, _ := v.catalog.Lookup(tool)
	accepted := AcceptedArguments(desc)
	for _, name := range names {
		if !accepted[name] {
			v.addf("%s: %s does not accept argument %q", where, tool, name)
		}
	}
}

func (v *suiteValidator) notExpected(where string, test ArgumentTest) {
	for _, name := range test.ForbiddenArgs {
		_, expected := test.ExpectedArgs[name]
		if expected || containsString(test.RequiredArgs, name) {
			v.addf("%s: argument %q is both forbidden and expected", where, name)
		}
	}
}

func (v *suiteValidator) build(where, tool string, args map[string]any) {
	if _, err := v.builder.BuildRequest(tool, args); err != nil {
		v.addf("%s: expected args do not build a request: %v", where, err)
	}
}

// AcceptedArguments returns the argument names desc understands
func AcceptedArguments(desc gleif.Descriptor) map[string]bool {
	accepted := make(map[string]bool, len(desc.PathParams)+len(desc.QueryParams)+1)
	for _, p := range desc.PathParams {
		accepted[p.Name] = true
	}
	for _, q := range desc.QueryParams {
		accepted[q.Name] = true
	}
	if desc.AllowFilters {
		accepted[gleif.FiltersArgument] = true
	}
	return accepted
}
