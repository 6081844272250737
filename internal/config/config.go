package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/odysseus0/svgsafe/internal/rules"
)

const (
	defaultFetchConcurrent = 4
	defaultHTTPTimeoutSec  = 20
)

const (
	defaultUserAgent  = "svgsafe/0.1"
	configFolderName  = "svgsafe"
	configFileName    = "config.toml"
	configPathEnvName = "XDG_CONFIG_HOME"
)

type Config struct {
	DBPath                string
	RecordHistory         bool
	RetentionDays         int
	LogLevel              string
	MaxDocumentBytes      int
	MaxTextLength         int
	MaxDepth              int
	AllowRemoteReferences bool
	FetchConcurrency      int
	HTTPTimeout           time.Duration
	UserAgent             string
	Rules                 rules.Spec
}

func LoadConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	defaultDB := filepath.Join(home, ".local", "share", "svgsafe", "svgsafe.db")

	limits := rules.DefaultLimits()
	cfg := Config{
		DBPath:           defaultDB,
		RecordHistory:    true,
		RetentionDays:    0,
		MaxDocumentBytes: limits.MaxDocumentBytes,
		MaxTextLength:    limits.MaxTextLength,
		MaxDepth:         limits.MaxDepth,
		FetchConcurrency: defaultFetchConcurrent,
		HTTPTimeout:      defaultHTTPTimeoutSec * time.Second,
		UserAgent:        defaultUserAgent,
	}

	configPath, hasConfig, err := findConfigPath(home)
	if err != nil {
		return Config{}, err
	}
	if hasConfig {
		fileCfg, err := loadFileConfig(configPath)
		if err != nil {
			return Config{}, err
		}
		applyFileConfig(&cfg, fileCfg)
	}

	applyEnvOverrides(&cfg)

	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = defaultFetchConcurrent
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeoutSec * time.Second
	}
	return cfg, nil
}

// Limits returns the configured size limits.
func (c Config) Limits() rules.Limits {
	return rules.Limits{
		MaxDocumentBytes: c.MaxDocumentBytes,
		MaxTextLength:    c.MaxTextLength,
		MaxDepth:         c.MaxDepth,
	}
}

// RuleTable compiles the configured rules. Lists absent from the config file
// keep their built-in defaults.
func (c Config) RuleTable() (*rules.Table, error) {
	return rules.New(c.Rules)
}

type fileConfig struct {
	DBPath                *string    `toml:"db_path"`
	RecordHistory         *bool      `toml:"record_history"`
	RetentionDays         *int       `toml:"retention_days"`
	LogLevel              *string    `toml:"log_level"`
	MaxDocumentBytes      *int       `toml:"max_document_bytes"`
	MaxTextLength         *int       `toml:"max_text_length"`
	MaxDepth              *int       `toml:"max_depth"`
	AllowRemoteReferences *bool      `toml:"allow_remote_references"`
	FetchConcurrency      *int       `toml:"fetch_concurrency"`
	HTTPTimeoutSeconds    *int       `toml:"http_timeout_seconds"`
	UserAgent             *string    `toml:"user_agent"`
	Rules                 *fileRules `toml:"rules"`
}

type fileRules struct {
	AllowedTags                     []string        `toml:"allowed_tags"`
	AllowedAttributes               []string        `toml:"allowed_attributes"`
	DangerousTags                   []string        `toml:"dangerous_tags"`
	DangerousAttributeNamePatterns  []string        `toml:"dangerous_attribute_name_patterns"`
	DangerousAttributeValuePatterns []string        `toml:"dangerous_attribute_value_patterns"`
	ContentPatterns                 []fileSignature `toml:"content_patterns"`
	RemotePatterns                  []fileSignature `toml:"remote_patterns"`
}

type fileSignature struct {
	ID      string `toml:"id"`
	Pattern string `toml:"pattern"`
}

func findConfigPath(home string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if xdgConfigHome := strings.TrimSpace(os.Getenv(configPathEnvName)); xdgConfigHome != "" {
		candidates = append(candidates, filepath.Join(xdgConfigHome, configFolderName, configFileName))
	}
	candidates = append(candidates, filepath.Join(home, ".config", configFolderName, configFileName))

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %q is a directory; expected a file", candidate)
			}
			return candidate, true, nil
		}
		if os.IsNotExist(err) {
			continue
		}
		return "", false, fmt.Errorf("failed to read config path %q: %w", candidate, err)
	}
	return "", false, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		unknown := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			unknown = append(unknown, key.String())
		}
		sort.Strings(unknown)
		return fileConfig{}, fmt.Errorf("invalid config file %q: unknown key(s): %s", path, strings.Join(unknown, ", "))
	}
	if err := validateFileConfig(path, cfg); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}

func validateFileConfig(path string, cfg fileConfig) error {
	if cfg.DBPath != nil && strings.TrimSpace(*cfg.DBPath) == "" {
		return fmt.Errorf("invalid config file %q: db_path must be non-empty when provided", path)
	}
	if cfg.RetentionDays != nil && *cfg.RetentionDays < 0 {
		return fmt.Errorf("invalid config file %q: retention_days must be >= 0", path)
	}
	positive := []struct {
		key string
		val *int
	}{
		{"max_document_bytes", cfg.MaxDocumentBytes},
		{"max_text_length", cfg.MaxTextLength},
		{"max_depth", cfg.MaxDepth},
		{"fetch_concurrency", cfg.FetchConcurrency},
		{"http_timeout_seconds", cfg.HTTPTimeoutSeconds},
	}
	for _, p := range positive {
		if p.val != nil && *p.val < 1 {
			return fmt.Errorf("invalid config file %q: %s must be >= 1", path, p.key)
		}
	}
	if cfg.Rules != nil {
		for _, sig := range append(append([]fileSignature(nil), cfg.Rules.ContentPatterns...), cfg.Rules.RemotePatterns...) {
			if strings.TrimSpace(sig.Pattern) == "" {
				return fmt.Errorf("invalid config file %q: rules pattern %q must be non-empty", path, sig.ID)
			}
		}
	}
	return nil
}

func applyFileConfig(cfg *Config, fileCfg fileConfig) {
	if fileCfg.DBPath != nil {
		cfg.DBPath = *fileCfg.DBPath
	}
	if fileCfg.RecordHistory != nil {
		cfg.RecordHistory = *fileCfg.RecordHistory
	}
	if fileCfg.RetentionDays != nil {
		cfg.RetentionDays = *fileCfg.RetentionDays
	}
	if fileCfg.LogLevel != nil {
		cfg.LogLevel = *fileCfg.LogLevel
	}
	if fileCfg.MaxDocumentBytes != nil {
		cfg.MaxDocumentBytes = *fileCfg.MaxDocumentBytes
	}
	if fileCfg.MaxTextLength != nil {
		cfg.MaxTextLength = *fileCfg.MaxTextLength
	}
	if fileCfg.MaxDepth != nil {
		cfg.MaxDepth = *fileCfg.MaxDepth
	}
	if fileCfg.AllowRemoteReferences != nil {
		cfg.AllowRemoteReferences = *fileCfg.AllowRemoteReferences
	}
	if fileCfg.FetchConcurrency != nil {
		cfg.FetchConcurrency = *fileCfg.FetchConcurrency
	}
	if fileCfg.HTTPTimeoutSeconds != nil {
		cfg.HTTPTimeout = time.Duration(*fileCfg.HTTPTimeoutSeconds) * time.Second
	}
	if fileCfg.UserAgent != nil {
		cfg.UserAgent = *fileCfg.UserAgent
	}
	if r := fileCfg.Rules; r != nil {
		cfg.Rules = rules.Spec{
			AllowedTags:                     r.AllowedTags,
			AllowedAttributes:               r.AllowedAttributes,
			DangerousTags:                   r.DangerousTags,
			DangerousAttributeNamePatterns:  r.DangerousAttributeNamePatterns,
			DangerousAttributeValuePatterns: r.DangerousAttributeValuePatterns,
			DangerousContentPatterns:        toSignatureSpecs(r.ContentPatterns),
			RemoteReferencePatterns:         toSignatureSpecs(r.RemotePatterns),
		}
	}
}

func toSignatureSpecs(in []fileSignature) []rules.SignatureSpec {
	if in == nil {
		return nil
	}
	out := make([]rules.SignatureSpec, 0, len(in))
	for _, s := range in {
		out = append(out, rules.SignatureSpec{ID: s.ID, Pattern: s.Pattern})
	}
	return out
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("SVGSAFE_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("SVGSAFE_RECORD_HISTORY"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RecordHistory = b
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_RETENTION_DAYS"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RetentionDays = n
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("SVGSAFE_MAX_DOCUMENT_BYTES"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxDocumentBytes = n
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_MAX_TEXT_LENGTH"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTextLength = n
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_MAX_DEPTH"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxDepth = n
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_ALLOW_REMOTE_REFERENCES"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowRemoteReferences = b
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_FETCH_CONCURRENCY"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.FetchConcurrency = n
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_HTTP_TIMEOUT_SECONDS"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeout = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("SVGSAFE_USER_AGENT"); ok && v != "" {
		cfg.UserAgent = v
	}
}
