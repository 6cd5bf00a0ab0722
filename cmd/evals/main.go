// Command evals loads the tool selection evaluation suites, checks them
// against the GLEIF tool catalog and reports their coverage.
//
// Usage:
//
//	go run ./cmd/evals --dir ./evals --suite all
//
// Scoring a real model means implementing evals.ToolSelector and calling
// EvaluateToolSelection, EvaluateConfusionPairs and EvaluateArguments.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/olgasafonova/gleif-mcp-server/evals"
	"github.com/olgasafonova/gleif-mcp-server/internal/base"
	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		dir     string
		suite   string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "evals",
		Short:         "Inspect and validate the GLEIF tool selection eval suites",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := evals.LoadAll(dir)
			if err != nil {
				return err
			}

			client := base.NewClient()
			defer client.Close()
			dispatcher := gleif.NewDispatcher(client)

			if err := suites.Validate(dispatcher); err != nil {
				return fmt.Errorf("suites do not match the tool catalog:\n%w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "GLEIF MCP Server - Evaluation Framework")
			fmt.Fprintln(w, "=======================================")
			fmt.Fprintln(w)

			switch suite {
			case "tool_selection":
				printToolSelection(w, suites.ToolSelection, verbose)
			case "confusion_pairs":
				printConfusionPairs(w, suites.ConfusionPairs, verbose)
			case "arguments":
				printArguments(w, suites.Arguments, verbose)
			case "all":
				printSummary(w, dir, suites, dispatcher.Catalog(), verbose)
			default:
				return fmt.Errorf("unknown suite: %s", suite)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./evals", "Directory containing eval JSON files")
	cmd.Flags().StringVar(&suite, "suite", "all", "Suite to show: tool_selection, confusion_pairs, arguments, or all")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show every test case")

	return cmd
}

func printCounts(w io.Writer, title string, counts map[string]int, width int) {
	fmt.Fprintln(w, title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-*s: %d\n", width, k, counts[k])
	}
	fmt.Fprintln(w)
}

func printToolSelection(w io.Writer, suite *evals.ToolSelectionSuite, verbose bool) {
	fmt.Fprintf(w, "Tool Selection Suite: %s\n", suite.Name)
	fmt.Fprintf(w, "Version: %s\n", suite.Version)
	fmt.Fprintf(w, "Description: %s\n", suite.Description)
	fmt.Fprintf(w, "Total Tests: %d\n\n", len(suite.Tests))

	categories := make(map[string]int)
	tools := make(map[string]int)
	for _, test := range suite.Tests {
		categories[test.Category]++
		tools[test.ExpectedTool]++
	}
	printCounts(w, "Tests by Category:", categories, 15)
	printCounts(w, "Tests by Tool:", tools, 28)

	if verbose {
		fmt.Fprintln(w, "Test Cases:")
		for _, test := range suite.Tests {
			fmt.Fprintf(w, "  [%s] %s\n", test.ID, test.Input)
			fmt.Fprintf(w, "    -> %s %v\n", test.ExpectedTool, test.ExpectedArgs)
			if len(test.NotTools) > 0 {
				fmt.Fprintf(w, "    not: %v\n", test.NotTools)
			}
		}
	}
}

func printConfusionPairs(w io.Writer, suite *evals.ConfusionPairSuite, verbose bool) {
	fmt.Fprintf(w, "Confusion Pairs Suite: %s\n", suite.Name)
	fmt.Fprintf(w, "Version: %s\n", suite.Version)
	fmt.Fprintf(w, "Description: %s\n", suite.Description)
	fmt.Fprintf(w, "Total Pairs: %d\n", len(suite.Pairs))

	totalTests := 0
	for _, pair := range suite.Pairs {
		totalTests += len(pair.Tests)
	}
	fmt.Fprintf(w, "Total Tests: %d\n", totalTests)

	for _, pair := range suite.Pairs {
		fmt.Fprintf(w, "\n  %s:\n", pair.ID)
		fmt.Fprintf(w, "    Tools: %v\n", pair.Tools)
		fmt.Fprintf(w, "    Rule: %s\n", pair.Disambiguation)
		fmt.Fprintf(w, "    Tests: %d\n", len(pair.Tests))

		if verbose {
			for _, test := range pair.Tests {
				fmt.Fprintf(w, "      %q\n", test.Input)
				fmt.Fprintf(w, "        -> %s (%s)\n", test.Expected, test.Reason)
			}
		}
	}
	fmt.Fprintln(w)
}

func printArguments(w io.Writer, suite *evals.ArgumentSuite, verbose bool) {
	fmt.Fprintf(w, "Argument Suite: %s\n", suite.Name)
	fmt.Fprintf(w, "Version: %s\n", suite.Version)
	fmt.Fprintf(w, "Description: %s\n", suite.Description)
	fmt.Fprintf(w, "Total Tests: %d\n\n", len(suite.Tests))

	tools := make(map[string]int)
	for _, test := range suite.Tests {
		tools[test.Tool]++
	}
	printCounts(w, "Tests by Tool:", tools, 28)

	rules := suite.ValidationRules
	fmt.Fprintln(w, "Validation Rules:")
	fmt.Fprintf(w, "  LEI: %s\n", rules.LEIFormat)
	fmt.Fprintf(w, "  Country: %s\n", rules.CountryFormat)
	fmt.Fprintf(w, "  Pagination: %s\n", rules.Pagination)
	fmt.Fprintf(w, "  Filters: %s\n", rules.Filters)
	fmt.Fprintf(w, "  Wildcards: %s\n\n", rules.Wildcards)

	if verbose {
		fmt.Fprintln(w, "Test Cases:")
		for _, test := range suite.Tests {
			fmt.Fprintf(w, "  [%s] %s\n", test.ID, test.Input)
			fmt.Fprintf(w, "    Tool: %s\n", test.Tool)
			fmt.Fprintf(w, "    Required: %v\n", test.RequiredArgs)
			fmt.Fprintf(w, "    Expected: %v\n", test.ExpectedArgs)
			if len(test.ForbiddenArgs) > 0 {
				fmt.Fprintf(w, "    Forbidden: %v\n", test.ForbiddenArgs)
			}
			if test.ArgNotes != "" {
				fmt.Fprintf(w, "    Notes: %s\n", test.ArgNotes)
			}
		}
	}
}

func printSummary(w io.Writer, dir string, suites *evals.Suites, catalog *gleif.Catalog, verbose bool) {
	confusionTests := 0
	for _, pair := range suites.ConfusionPairs.Pairs {
		confusionTests += len(pair.Tests)
	}

	fmt.Fprintf(w, "Loaded all evaluation suites from: %s\n\n", dir)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintln(w, "--------")
	fmt.Fprintf(w, "Tool Selection Tests:   %d\n", len(suites.ToolSelection.Tests))
	fmt.Fprintf(w, "Confusion Pair Tests:   %d (across %d pairs)\n", confusionTests, len(suites.ConfusionPairs.Pairs))
	fmt.Fprintf(w, "Argument Tests:         %d\n", len(suites.Arguments.Tests))
	fmt.Fprintln(w, "--------------------------")
	fmt.Fprintf(w, "Total Evaluation Tests: %d\n\n", suites.TotalTests())

	covered := suites.ToolCoverage()
	fmt.Fprintf(w, "Tool Coverage: %d of %d tools\n", len(covered), catalog.Len())
	if missing := suites.UncoveredTools(catalog); len(missing) > 0 {
		fmt.Fprintf(w, "Not covered: %v\n", missing)
	}

	if verbose {
		fmt.Fprintln(w, "\nCovered Tools:")
		for _, name := range catalog.Names() {
			if covered[name] {
				fmt.Fprintf(w, "  + %s\n", name)
			}
		}
	}
}
