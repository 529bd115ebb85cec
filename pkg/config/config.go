package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no --config is given
const DefaultFileName = "weaver.yaml"

// Config is the full configuration surface. It is built once per
// invocation and handed to every component constructor.
type Config struct {
	Root string `yaml:"root" mapstructure:"root"`
	Repo string `yaml:"repo" mapstructure:"repo"`

	APIRoot        string   `yaml:"api_root" mapstructure:"api_root"`
	RoutePrefix    string   `yaml:"route_prefix" mapstructure:"route_prefix"`
	RouteFileNames []string `yaml:"route_file_names" mapstructure:"route_file_names"`
	FunctionsDirs  []string `yaml:"functions_dirs" mapstructure:"functions_dirs"`
	FunctionPrefix string   `yaml:"function_prefix" mapstructure:"function_prefix"`

	CallerDirs  []string `yaml:"caller_dirs" mapstructure:"caller_dirs"`
	TestDirs    []string `yaml:"test_dirs" mapstructure:"test_dirs"`
	Extensions  []string `yaml:"extensions" mapstructure:"extensions"`
	ExcludeDirs []string `yaml:"exclude_dirs" mapstructure:"exclude_dirs"`
	TestMarkers []string `yaml:"test_markers" mapstructure:"test_markers"`

	ExternalBases   []ExternalBase   `yaml:"external_bases" mapstructure:"external_bases"`
	ExternalSources []ExternalSource `yaml:"external_sources" mapstructure:"external_sources"`

	CallerExclusions []string         `yaml:"caller_exclusions" mapstructure:"caller_exclusions"`
	ServerAllowlist  []AllowlistEntry `yaml:"server_allowlist" mapstructure:"server_allowlist"`

	SupportedSchemaVersions []string `yaml:"supported_schema_versions" mapstructure:"supported_schema_versions"`

	DocTagMarker  string `yaml:"doc_tag_marker" mapstructure:"doc_tag_marker"`
	DocTagPattern string `yaml:"doc_tag_pattern" mapstructure:"doc_tag_pattern"`

	// StorageCalls are the table accessors of the storage client,
	// e.g. ".from" in TypeScript and ".table" in supabase-py.
	StorageCalls    []string `yaml:"storage_calls" mapstructure:"storage_calls"`
	WebhookKeywords []string `yaml:"webhook_keywords" mapstructure:"webhook_keywords"`

	// WrapperReceivers names the objects whose get/post/put/patch/delete
	// methods are thin HTTP wrappers (e.g. api.get('/projects')).
	WrapperReceivers []string `yaml:"wrapper_receivers" mapstructure:"wrapper_receivers"`

	ReportUnclassifiedExternal bool `yaml:"report_unclassified_external" mapstructure:"report_unclassified_external"`
	Ecosystem                  bool `yaml:"ecosystem" mapstructure:"ecosystem"`

	Thresholds Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
	Outputs    Outputs    `yaml:"outputs" mapstructure:"outputs"`

	// dotenv holds values read from <root>/.env; process env wins.
	dotenv map[string]string
}

// ExternalBase maps a sibling service base URL to its repo id
type ExternalBase struct {
	Repo       string   `yaml:"repo" mapstructure:"repo"`
	BaseURL    string   `yaml:"base_url,omitempty" mapstructure:"base_url"`
	BaseURLEnv string   `yaml:"base_url_env,omitempty" mapstructure:"base_url_env"`
	EnvVars    []string `yaml:"env_vars,omitempty" mapstructure:"env_vars"`
}

// ExternalSource points at a sibling repository's published inventory
type ExternalSource struct {
	Repo      string `yaml:"repo" mapstructure:"repo"`
	Inventory string `yaml:"inventory" mapstructure:"inventory"`
	SourceDir string `yaml:"source_dir,omitempty" mapstructure:"source_dir"`
	Required  bool   `yaml:"required" mapstructure:"required"`
}

// AllowlistEntry marks a legitimate server-to-server call
type AllowlistEntry struct {
	CallerSuffix string `yaml:"caller_suffix" mapstructure:"caller_suffix"`
	Route        string `yaml:"route" mapstructure:"route"`
}

// Thresholds holds the numeric knobs used by reports and validation
type Thresholds struct {
	SkippedCallsWarning int `yaml:"skipped_calls_warning" mapstructure:"skipped_calls_warning"`
	OutboundFanout      int `yaml:"outbound_fanout" mapstructure:"outbound_fanout"`
	ReportDisplayCap    int `yaml:"report_display_cap" mapstructure:"report_display_cap"`
	InfoDisplayCap      int `yaml:"info_display_cap" mapstructure:"info_display_cap"`
	SnippetChars        int `yaml:"snippet_chars" mapstructure:"snippet_chars"`
}

// Outputs lists generated artifact locations, relative to Root
type Outputs struct {
	MapPath        string `yaml:"map_path" mapstructure:"map_path"`
	OrphanReport   string `yaml:"orphan_report" mapstructure:"orphan_report"`
	CoverageReport string `yaml:"coverage_report" mapstructure:"coverage_report"`
	InventoryPath  string `yaml:"inventory_path" mapstructure:"inventory_path"`
}

// DefaultConfig returns the conventions of a Next.js app router project
// with Netlify functions and Playwright e2e tests.
func DefaultConfig() *Config {
	return &Config{
		Root:           ".",
		Repo:           "app",
		APIRoot:        "src/app/api",
		RoutePrefix:    "/api",
		RouteFileNames: []string{"route", "index", "handler"},
		FunctionsDirs:  []string{"netlify/functions"},
		FunctionPrefix: "/.netlify/functions/",
		CallerDirs:     []string{"src"},
		TestDirs:       []string{"tests", "e2e"},
		Extensions:     []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py"},
		ExcludeDirs: []string{
			"node_modules", ".next", ".git", ".turbo", ".vercel", ".netlify",
			"dist", "build", "out", "coverage", "__pycache__", ".venv", "venv",
		},
		TestMarkers:             []string{"__tests__", ".test.", ".spec.", "/tests/", "/e2e/"},
		SupportedSchemaVersions: []string{"1.0", "1.x"},
		DocTagMarker:            "@story",
		DocTagPattern:           `^[A-Z]{2,}-[A-Z]*[0-9]+$`,
		StorageCalls:            []string{".from", ".table"},
		WebhookKeywords:         []string{"webhook", "webhooks", "callback", "callbacks", "cron"},
		WrapperReceivers:        []string{"api", "apiClient", "client", "http", "axios", "requests", "httpx"},
		Thresholds: Thresholds{
			SkippedCallsWarning: 25,
			OutboundFanout:      5,
			ReportDisplayCap:    50,
			InfoDisplayCap:      20,
			SnippetChars:        120,
		},
		Outputs: Outputs{
			MapPath:        "docs/api-wiring-map.json",
			OrphanReport:   "docs/api-orphans.md",
			CoverageReport: "docs/api-e2e-coverage.md",
			InventoryPath:  "api-inventory.json",
		},
	}
}

// LoadConfig reads path on top of DefaultConfig. A missing file at the
// default location yields the defaults; a missing explicit file is an error.
// WEAVER_ROOT, WEAVER_REPO and WEAVER_OUTPUTS_MAP_PATH override the file.
// A relative root read from the file is resolved against the file's directory.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"root", "repo", "outputs.map_path"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if _, fromEnv := os.LookupEnv("WEAVER_ROOT"); !fromEnv {
		if read := v.ConfigFileUsed(); read != "" && !filepath.IsAbs(cfg.Root) {
			cfg.Root = filepath.Join(filepath.Dir(read), cfg.Root)
		}
	}

	if err := cfg.loadDotenv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadDotenv() error {
	path := c.Path(".env")
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	c.dotenv = values
	return nil
}

// SetDotenv replaces the .env values. Tests use it to stay hermetic.
func (c *Config) SetDotenv(values map[string]string) {
	c.dotenv = values
}

// LookupEnv reads the process environment, falling back to <root>/.env
func (c *Config) LookupEnv(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, true
	}
	v, ok := c.dotenv[name]
	return v, ok && v != ""
}

// SaveConfig writes configuration to a YAML file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Path resolves p against Root unless it is already absolute
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

// Paths resolves every entry with Path
func (c *Config) Paths(ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, c.Path(p))
	}
	return out
}

// Rel returns p relative to Root in slash form, for report output
func (c *Config) Rel(p string) string {
	r, err := filepath.Rel(c.Root, p)
	if err != nil || strings.HasPrefix(r, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

// ResolvedBases returns the external base table with env lookups applied.
// Entries without a usable URL are dropped; trailing slashes are trimmed.
func (c *Config) ResolvedBases() []ExternalBase {
	out := make([]ExternalBase, 0, len(c.ExternalBases))
	for _, b := range c.ExternalBases {
		url := b.BaseURL
		if b.BaseURLEnv != "" {
			if v, ok := c.LookupEnv(b.BaseURLEnv); ok {
				url = v
			}
		}
		url = strings.TrimRight(strings.TrimSpace(url), "/")
		if url == "" {
			continue
		}
		b.BaseURL = url
		out = append(out, b)
	}
	return out
}

// ExternalEnvVars returns every env var name that denotes an external base,
// keyed to its repo id.
func (c *Config) ExternalEnvVars() map[string]string {
	vars := make(map[string]string)
	for _, b := range c.ExternalBases {
		for _, name := range b.EnvVars {
			vars[name] = b.Repo
		}
		if b.BaseURLEnv != "" {
			vars[b.BaseURLEnv] = b.Repo
		}
	}
	return vars
}
