package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olgasafonova/gleif-mcp-server/internal/config"
	apierrors "github.com/olgasafonova/gleif-mcp-server/internal/errors"
	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
	"github.com/olgasafonova/gleif-mcp-server/tools"
)

// errToolFailed marks a `call` whose result was an error document
var errToolFailed = errors.New("tool call failed")

// rootOptions holds persistent flags shared by every command
type rootOptions struct {
	configFile string
	envFile    string
	baseURL    string
	timeout    string
	userAgent  string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   ServerName,
		Short: "MCP server for the GLEIF LEI API",
		Long: `GLEIF MCP Server exposes the GLEIF REST API v1.0 as Model Context Protocol tools.

Configuration precedence (lowest first):
  defaults, TOML file (--config or GLEIF_MCP_CONFIG), .env file, environment, flags

Examples:
  gleif-mcp-server serve                        # MCP over stdio
  gleif-mcp-server serve --transport http       # Streamable HTTP on :8080
  gleif-mcp-server tools                        # List tools
  gleif-mcp-server call get_country --arg code=DE`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Path to a .env file (ignored if missing)")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "GLEIF API base URL")
	cmd.PersistentFlags().StringVar(&opts.timeout, "timeout", "", "Upstream request timeout (e.g. 30s)")
	cmd.PersistentFlags().StringVar(&opts.userAgent, "user-agent", "", "User-Agent sent to GLEIF")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		serveCmd(opts),
		toolsCmd(),
		callCmd(opts),
		versionCmd(),
	)

	return cmd
}

// loadConfig layers persistent flags over config.Load and validates the result.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigFile: o.configFile, EnvFile: o.envFile})
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("timeout") {
		d, err := config.ParseTimeout(o.timeout)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = o.userAgent
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	return cfg, nil
}

func serveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio (default) or streamable HTTP.

HTTP mode serves:
  /mcp      MCP streamable HTTP endpoint
  /health   Liveness check
  /metrics  Prometheus metrics
  /         Server name, version and tool list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.serveConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, newLogger(cmd.ErrOrStderr(), cfg.SlogLevel()))
		},
	}

	cmd.Flags().String("transport", config.TransportStdio, "Transport: stdio or http")
	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "Listen address for the http transport")

	return cmd
}

// serveConfig layers the serve flags over loadConfig. The returned config is
// validated and normalized.
func (o *rootOptions) serveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport, _ = flags.GetString("transport")
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr, _ = flags.GetString("http-addr")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func toolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools and their arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := gleif.DefaultCatalog()
			if err := tools.Validate(catalog); err != nil {
				return err
			}
			if asJSON {
				return writeToolsJSON(cmd.OutOrStdout(), catalog)
			}
			return writeToolsTable(cmd.OutOrStdout(), catalog)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type toolSummary struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Path      string   `json:"path"`
	Required  []string `json:"required,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

func summarizeTools(catalog *gleif.Catalog) []toolSummary {
	out := make([]toolSummary, 0, catalog.Len())
	for _, desc := range catalog.All() {
		spec, _ := tools.Lookup(desc.Name)
		s := toolSummary{
			Name:     desc.Name,
			Title:    spec.Title,
			Category: spec.Category,
			Path:     desc.Path,
		}
		for _, p := range desc.PathParams {
			s.Required = append(s.Required, p.Name)
		}
		for _, q := range desc.QueryParams {
			if q.Required {
				s.Required = append(s.Required, q.Name)
			} else {
				s.Arguments = append(s.Arguments, q.Name)
			}
		}
		if desc.AllowFilters {
			s.Arguments = append(s.Arguments, gleif.FiltersArgument)
		}
		out = append(out, s)
	}
	return out
}

func writeToolsJSON(w io.Writer, catalog *gleif.Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summarizeTools(catalog))
}

func writeToolsTable(w io.Writer, catalog *gleif.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tPATH\tREQUIRED\tOPTIONAL")
	for _, s := range summarizeTools(catalog) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			s.Name, s.Path, dashIfEmpty(s.Required), dashIfEmpty(s.Arguments))
	}
	return tw.Flush()
}

func dashIfEmpty(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}

func callCmd(opts *rootOptions) *cobra.Command {
	var (
		pairs    []string
		argsJSON string
		pretty   bool
	)

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print the resulting JSON document",
		Long: `Invoke one tool against the GLEIF API and print the result.

Arguments are given as --arg key=value (repeatable) and/or --args-json '{...}'.
--arg values override keys from --args-json.

Examples:
  gleif-mcp-server call get_lei_record --arg lei=5493001KJTIIGC8Y1R12
  gleif-mcp-server call search_lei_records --arg legal_name='*Siemens*' --arg size=5
  gleif-mcp-server call list_lei_records --args-json '{"filters":{"entity.legalAddress.country":"NO"}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			toolArgs, err := parseCallArguments(argsJSON, pairs)
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
			dispatcher, closeClient := newDispatcher(cfg, logger)
			defer closeClient()

			doc, callErr := dispatcher.Invoke(cmd.Context(), args[0], toolArgs)
			if callErr != nil {
				doc = apierrors.Document(callErr)
			}
			if err := writeDocument(cmd.OutOrStdout(), doc, pretty); err != nil {
				return err
			}
			if callErr != nil {
				return fmt.Errorf("%w: %s", errToolFailed, apierrors.Kind(callErr))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "Tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "Tool arguments as a JSON object")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")

	return cmd
}

// parseCallArguments merges a JSON object with key=value pairs.
func parseCallArguments(argsJSON string, pairs []string) (map[string]any, error) {
	args := make(map[string]any)
	if strings.TrimSpace(argsJSON) != "" {
		dec := json.NewDecoder(strings.NewReader(argsJSON))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			return nil, fmt.Errorf("--args-json must be a JSON object: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

func writeDocument(w io.Writer, doc []byte, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err == nil {
			doc = buf.Bytes()
		}
	}
	if _, err := w.Write(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ServerName, ServerVersion)
		},
	}
}

// newLogger writes text logs to w; stdout is reserved for MCP stdio.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
