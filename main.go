// GLEIF MCP Server - A Model Context Protocol server for the GLEIF LEI API
// Exposes LEI records, issuers, countries, legal forms and field metadata as tools
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

const (
	ServerName    = "gleif-mcp-server"
	ServerTitle   = "GLEIF MCP Server"
	ServerVersion = "1.0.0"
)

const serverInstructions = `GLEIF MCP Server provides read-only access to the Global Legal Entity Identifier Foundation (GLEIF) API.

Every tool returns the GLEIF JSON:API document unchanged, or {"error": "..."} on failure.

Typical flow:
1. Find an entity: search_lei_records (exact/wildcard name, country, status) or fuzzy_completions (approximate names)
2. Fetch the record: get_lei_record with the 20-character LEI
3. Explain codes: get_entity_legal_form, get_country, get_lei_issuer

Collections accept page (from 1) and size (1-200). list_lei_records and search_lei_records also accept
a filters object forwarded as filter[<field path>]; use list_fields to discover field paths.`

// recoverPanic logs a recovered panic for the named operation
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
