package tools

// AllTools contains all tool specifications for the GLEIF MCP server.
// Tools are organized by category for easier maintenance.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// LEI RECORDS
	// ==========================================================================
	{
		Name:     "list_lei_records",
		Title:    "List LEI Records",
		Category: "lei_records",
		Description: `Page through LEI records, optionally narrowed by raw GLEIF filters.

USE WHEN: User asks to "browse LEI records", "list entities registered in Norway", or already knows the exact GLEIF filter field to apply.

NOT FOR: Finding a company by name (use search_lei_records). Looking up one known LEI (use get_lei_record).

PARAMETERS:
- page: Page number, starting at 1 (optional)
- size: Results per page, 1-200 (optional, GLEIF default 10)
- sort: Sort field, '-' prefix for descending (optional)
- filters: Object of GLEIF field paths to values, sent as filter[<path>] (optional)

RETURNS: JSON:API document with data[] of LEI records and meta.pagination.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_lei_record",
		Title:    "Get LEI Record",
		Category: "lei_records",
		Description: `Get the full LEI record for one 20-character LEI code.

USE WHEN: User provides an LEI like "5493001KJTIIGC8Y1R12" or asks "who is LEI X", "is this LEI still valid".

NOT FOR: Searching by company name (use search_lei_records or fuzzy_completions first).

PARAMETERS:
- lei: 20 upper-case letters/digits (required)

RETURNS: Legal name, legal and headquarters addresses, jurisdiction, legal form, entity status, registration status, renewal dates and managing LOU.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "search_lei_records",
		Title:    "Search LEI Records",
		Category: "lei_records",
		Description: `Search LEI records by legal name, country, status or mapped identifiers.

USE WHEN: User asks "find the LEI for Apple", "active funds in Luxembourg", "which LEI has ISIN US0378331005", "LEIs with lapsed registration in Germany".

NOT FOR: Typo-tolerant name lookup (use fuzzy_completions). Known LEI (use get_lei_record).

PARAMETERS:
- legal_name: Legal name, '*' wildcards allowed (optional)
- fulltext: Free text across names and addresses (optional)
- lei_list: List of LEIs to fetch together (optional)
- country / headquarters_country: ISO 3166 alpha-2 (optional)
- registration_status: ISSUED, LAPSED, RETIRED, ... (optional)
- entity_status: ACTIVE or INACTIVE (optional)
- entity_category: GENERAL, BRANCH, FUND, SOLE_PROPRIETOR, ... (optional)
- legal_form: ELF code (optional)
- managing_lou: LEI of the issuing LOU (optional)
- bic / isin: Mapped identifiers (optional)
- page, size, sort, filters: As for list_lei_records

RETURNS: JSON:API document with matching LEI records and meta.pagination. With no filters this is identical to list_lei_records.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// COMPLETIONS
	// ==========================================================================
	{
		Name:     "fuzzy_completions",
		Title:    "Fuzzy Name Matching",
		Category: "completions",
		Description: `Fuzzy-match a name against GLEIF, tolerating typos and word order.

USE WHEN: User gives an approximate or misspelled company name: "deutshe bank", "the goldman sachs group".

NOT FOR: Prefix type-ahead (use auto_completions). Full records (follow up with get_lei_record).

PARAMETERS:
- field: Field to match, e.g. "entity.legalName" or "fulltext" (required)
- q: Approximate text (required)

RETURNS: Candidate names with the LEI they resolve to.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "auto_completions",
		Title:    "Autocomplete",
		Category: "completions",
		Description: `Prefix autocompletion for names and identifiers.

USE WHEN: User has typed the start of a name or LEI and wants suggestions: "companies starting with Volksw".

NOT FOR: Misspelled names (use fuzzy_completions).

PARAMETERS:
- field: Field to complete, e.g. "fulltext" or "entity.legalName" (required)
- q: Prefix text (required)

RETURNS: Suggested values with related LEI records where available.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// LEI ISSUERS
	// ==========================================================================
	{
		Name:     "list_lei_issuers",
		Title:    "List LEI Issuers",
		Category: "issuers",
		Description: `List accredited LEI issuers (Local Operating Units).

USE WHEN: User asks "who can issue LEIs", "list the LOUs", "which organizations manage LEI registrations".

NOT FOR: Details of one known issuer (use get_lei_issuer).

PARAMETERS:
- page: Page number, starting at 1 (optional)
- size: Results per page, 1-200 (optional)

RETURNS: Issuer names, LEIs, websites and accreditation dates.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_lei_issuer",
		Title:    "Get LEI Issuer",
		Category: "issuers",
		Description: `Get one LEI issuer (LOU) by its id.

USE WHEN: A record's managing LOU is known and user asks "who manages this LEI", "tell me about this issuer".

NOT FOR: Listing all issuers (use list_lei_issuers).

PARAMETERS:
- id: Issuer id, which is the issuer's own LEI (required)

RETURNS: Issuer name, marketing name, website and accreditation details.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// REFERENCE DATA
	// ==========================================================================
	{
		Name:     "list_countries",
		Title:    "List Countries",
		Category: "reference",
		Description: `List countries known to GLEIF with their ISO codes.

USE WHEN: User needs valid country codes for filters or asks "which countries does GLEIF cover".

NOT FOR: One known country (use get_country).

PARAMETERS:
- page: Page number, starting at 1 (optional)
- size: Results per page, 1-200 (optional)

RETURNS: ISO 3166 alpha-2 codes and country names.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_country",
		Title:    "Get Country",
		Category: "reference",
		Description: `Get a country by ISO 3166 alpha-2 code.

USE WHEN: User asks "what is country code DE" or needs to confirm a code.

NOT FOR: Listing LEI records in a country (use search_lei_records with country).

PARAMETERS:
- code: Two-letter country code, case-insensitive (required)

RETURNS: Country code and name.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "list_entity_legal_forms",
		Title:    "List Entity Legal Forms",
		Category: "reference",
		Description: `List ISO 20275 Entity Legal Forms (ELF codes), optionally for one country.

USE WHEN: User asks "what legal forms exist in Norway", "ELF code for a German GmbH".

NOT FOR: One known ELF code (use get_entity_legal_form).

PARAMETERS:
- country_code: ISO 3166 alpha-2 (optional)
- page: Page number, starting at 1 (optional)
- size: Results per page, 1-200 (optional)

RETURNS: ELF codes with local and transliterated names per jurisdiction.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_entity_legal_form",
		Title:    "Get Entity Legal Form",
		Category: "reference",
		Description: `Get one Entity Legal Form by ELF code.

USE WHEN: A record shows a legal form code like "8888" or "XTIQ" and user asks what it means.

NOT FOR: Browsing legal forms (use list_entity_legal_forms).

PARAMETERS:
- id: ELF code (required)

RETURNS: Legal form names, country, jurisdiction and status.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// FIELD METADATA
	// ==========================================================================
	{
		Name:     "list_fields",
		Title:    "List Filter Fields",
		Category: "fields",
		Description: `List the LEI record fields GLEIF supports for filtering and sorting.

USE WHEN: Building a filters object and the exact field path is unknown.

NOT FOR: Details of one field (use get_field_details).

PARAMETERS:
- page: Page number, starting at 1 (optional)
- size: Results per page, 1-200 (optional)

RETURNS: Field ids, paths and descriptions.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_field_details",
		Title:    "Get Field Details",
		Category: "fields",
		Description: `Get details for one filterable field.

USE WHEN: User asks how a specific field can be filtered or what values it takes.

NOT FOR: Listing all fields (use list_fields).

PARAMETERS:
- id: Field id, e.g. "LEIREC_LEGAL_NAME" (required)

RETURNS: Field path, type, and supported filter operators.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
