package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odysseus0/svgsafe/internal/rules"
)

var configEnvKeys = []string{
	"HOME",
	configPathEnvName,
	"SVGSAFE_DB_PATH",
	"SVGSAFE_RECORD_HISTORY",
	"SVGSAFE_RETENTION_DAYS",
	"SVGSAFE_LOG_LEVEL",
	"SVGSAFE_MAX_DOCUMENT_BYTES",
	"SVGSAFE_MAX_TEXT_LENGTH",
	"SVGSAFE_MAX_DEPTH",
	"SVGSAFE_ALLOW_REMOTE_REFERENCES",
	"SVGSAFE_FETCH_CONCURRENCY",
	"SVGSAFE_HTTP_TIMEOUT_SECONDS",
	"SVGSAFE_USER_AGENT",
}

func setEnvForTest(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnvForTest(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		unsetEnvForTest(t, key)
	}
}

func writeConfigFile(t *testing.T, home string, body string) string {
	t.Helper()
	path := filepath.Join(home, ".config", configFolderName, configFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfig_NoConfigFileUsesDefaults(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	setEnvForTest(t, "HOME", home)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	wantDB := filepath.Join(home, ".local", "share", "svgsafe", "svgsafe.db")
	if cfg.DBPath != wantDB {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, wantDB)
	}
	if !cfg.RecordHistory {
		t.Fatalf("RecordHistory = false, want true")
	}
	if cfg.Limits() != rules.DefaultLimits() {
		t.Fatalf("Limits = %+v, want %+v", cfg.Limits(), rules.DefaultLimits())
	}
	if cfg.AllowRemoteReferences {
		t.Fatalf("AllowRemoteReferences = true, want false")
	}
	if cfg.FetchConcurrency != defaultFetchConcurrent {
		t.Fatalf("FetchConcurrency = %d, want %d", cfg.FetchConcurrency, defaultFetchConcurrent)
	}
	if cfg.HTTPTimeout != defaultHTTPTimeoutSec*time.Second {
		t.Fatalf("HTTPTimeout = %s, want %s", cfg.HTTPTimeout, defaultHTTPTimeoutSec*time.Second)
	}
	if cfg.UserAgent != defaultUserAgent {
		t.Fatalf("UserAgent = %q, want %q", cfg.UserAgent, defaultUserAgent)
	}

	table, err := cfg.RuleTable()
	if err != nil {
		t.Fatalf("RuleTable: %v", err)
	}
	if !table.AllowsTag("circle") || !table.IsDangerousTag("script") {
		t.Fatalf("default rule table expected")
	}
}

func TestLoadConfig_ConfigFileValuesApplied(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	setEnvForTest(t, "HOME", home)

	wantDB := filepath.Join(t.TempDir(), "cfg.db")
	writeConfigFile(t, home, `
db_path = "`+wantDB+`"
record_history = false
retention_days = 7
log_level = "debug"
max_document_bytes = 4096
max_text_length = 512
max_depth = 32
allow_remote_references = true
fetch_concurrency = 2
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DBPath != wantDB {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, wantDB)
	}
	if cfg.RecordHistory {
		t.Fatalf("RecordHistory = true, want false")
	}
	if cfg.RetentionDays != 7 {
		t.Fatalf("RetentionDays = %d, want 7", cfg.RetentionDays)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	want := rules.Limits{MaxDocumentBytes: 4096, MaxTextLength: 512, MaxDepth: 32}
	if cfg.Limits() != want {
		t.Fatalf("Limits = %+v, want %+v", cfg.Limits(), want)
	}
	if !cfg.AllowRemoteReferences {
		t.Fatalf("AllowRemoteReferences = false, want true")
	}
	if cfg.FetchConcurrency != 2 {
		t.Fatalf("FetchConcurrency = %d, want 2", cfg.FetchConcurrency)
	}
}

func TestLoadConfig_RulesTableReplacesDefaults(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	setEnvForTest(t, "HOME", home)

	writeConfigFile(t, home, `
[rules]
allowed_tags = ["svg", "path", "script"]
allowed_attributes = ["d", "fill"]

[[rules.content_patterns]]
id = "no-foo"
pattern = "foo\\s*\\("
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	table, err := cfg.RuleTable()
	if err != nil {
		t.Fatalf("RuleTable: %v", err)
	}
	if !table.AllowsTag("path") || table.AllowsTag("circle") {
		t.Fatalf("allowed tags not replaced")
	}
	if table.AllowsTag("script") {
		t.Fatalf("dangerous tag must not be allowed")
	}
	if table.AllowsAttribute("stroke") {
		t.Fatalf("allowed attributes not replaced")
	}
	sigs := table.ContentSignatures(false)
	if len(sigs) != 1 || sigs[0].ID != "no-foo" || !sigs[0].Pattern.MatchString("FOO (") {
		t.Fatalf("content signatures = %+v", sigs)
	}
}

func TestLoadConfig_InconsistentRulesFailToCompile(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	setEnvForTest(t, "HOME", home)

	writeConfigFile(t, home, `
[rules]
allowed_tags = ["path"]
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := cfg.RuleTable(); !errors.Is(err, rules.ErrInconsistent) {
		t.Fatalf("RuleTable err = %v, want ErrInconsistent", err)
	}
}

func TestLoadConfig_XDGConfigPreferredOverHomeConfig(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	xdg := t.TempDir()
	setEnvForTest(t, "HOME", home)
	setEnvForTest(t, configPathEnvName, xdg)

	writeConfigFile(t, home, `
max_depth = 10
`)
	xdgPath := filepath.Join(xdg, configFolderName, configFileName)
	if err := os.MkdirAll(filepath.Dir(xdgPath), 0o755); err != nil {
		t.Fatalf("mkdir xdg config dir: %v", err)
	}
	if err := os.WriteFile(xdgPath, []byte("max_depth = 64\n"), 0o644); err != nil {
		t.Fatalf("write xdg config file: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxDepth != 64 {
		t.Fatalf("MaxDepth = %d, want 64", cfg.MaxDepth)
	}
}

func TestLoadConfig_EnvOverridesConfigFile(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	setEnvForTest(t, "HOME", home)

	writeConfigFile(t, home, `
db_path = "/tmp/from-config.db"
max_text_length = 100
allow_remote_references = true
retention_days = 5
`)

	envDB := filepath.Join(t.TempDir(), "from-env.db")
	setEnvForTest(t, "SVGSAFE_DB_PATH", envDB)
	setEnvForTest(t, "SVGSAFE_MAX_TEXT_LENGTH", "200")
	setEnvForTest(t, "SVGSAFE_ALLOW_REMOTE_REFERENCES", "false")
	setEnvForTest(t, "SVGSAFE_RETENTION_DAYS", "11")
	setEnvForTest(t, "SVGSAFE_HTTP_TIMEOUT_SECONDS", "9")
	setEnvForTest(t, "SVGSAFE_USER_AGENT", "svgsafe-test/2.0")
	setEnvForTest(t, "SVGSAFE_LOG_LEVEL", "info")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DBPath != envDB {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, envDB)
	}
	if cfg.MaxTextLength != 200 {
		t.Fatalf("MaxTextLength = %d, want 200", cfg.MaxTextLength)
	}
	if cfg.AllowRemoteReferences {
		t.Fatalf("AllowRemoteReferences = true, want false")
	}
	if cfg.RetentionDays != 11 {
		t.Fatalf("RetentionDays = %d, want 11", cfg.RetentionDays)
	}
	if cfg.HTTPTimeout != 9*time.Second {
		t.Fatalf("HTTPTimeout = %s, want 9s", cfg.HTTPTimeout)
	}
	if cfg.UserAgent != "svgsafe-test/2.0" {
		t.Fatalf("UserAgent = %q, want %q", cfg.UserAgent, "svgsafe-test/2.0")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfig_InvalidOrEmptyEnvDoesNotOverrideConfigFile(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	setEnvForTest(t, "HOME", home)

	configDB := filepath.Join(t.TempDir(), "from-config.db")
	writeConfigFile(t, home, `
db_path = "`+configDB+`"
max_document_bytes = 1000
fetch_concurrency = 7
retention_days = 13
`)

	setEnvForTest(t, "SVGSAFE_DB_PATH", "")
	setEnvForTest(t, "SVGSAFE_MAX_DOCUMENT_BYTES", "abc")
	setEnvForTest(t, "SVGSAFE_FETCH_CONCURRENCY", "0")
	setEnvForTest(t, "SVGSAFE_RETENTION_DAYS", "-1")
	setEnvForTest(t, "SVGSAFE_RECORD_HISTORY", "maybe")
	setEnvForTest(t, "SVGSAFE_USER_AGENT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DBPath != configDB {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, configDB)
	}
	if cfg.MaxDocumentBytes != 1000 {
		t.Fatalf("MaxDocumentBytes = %d, want 1000", cfg.MaxDocumentBytes)
	}
	if cfg.FetchConcurrency != 7 {
		t.Fatalf("FetchConcurrency = %d, want 7", cfg.FetchConcurrency)
	}
	if cfg.RetentionDays != 13 {
		t.Fatalf("RetentionDays = %d, want 13", cfg.RetentionDays)
	}
	if !cfg.RecordHistory {
		t.Fatalf("RecordHistory = false, want true")
	}
	if cfg.UserAgent != defaultUserAgent {
		t.Fatalf("UserAgent = %q, want %q", cfg.UserAgent, defaultUserAgent)
	}
}

func TestLoadConfig_InvalidConfigReturnsError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSnippet string
	}{
		{
			name:        "max_depth non-positive",
			body:        "max_depth = 0\n",
			wantSnippet: "max_depth must be >= 1",
		},
		{
			name:        "fetch_concurrency too small",
			body:        "fetch_concurrency = 0\n",
			wantSnippet: "fetch_concurrency must be >= 1",
		},
		{
			name:        "retention_days negative",
			body:        "retention_days = -1\n",
			wantSnippet: "retention_days must be >= 0",
		},
		{
			name:        "db_path empty",
			body:        "db_path = \"   \"\n",
			wantSnippet: "db_path must be non-empty",
		},
		{
			name:        "empty rules pattern",
			body:        "[[rules.content_patterns]]\nid = \"x\"\npattern = \"\"\n",
			wantSnippet: `rules pattern "x" must be non-empty`,
		},
		{
			name:        "unknown key",
			body:        "timeout_seconds = 10\n",
			wantSnippet: "unknown key(s): timeout_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			home := t.TempDir()
			setEnvForTest(t, "HOME", home)
			path := writeConfigFile(t, home, tt.body)

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("LoadConfig() error = nil, want error")
			}
			msg := err.Error()
			if !strings.Contains(msg, tt.wantSnippet) {
				t.Fatalf("error %q does not contain %q", msg, tt.wantSnippet)
			}
			if !strings.Contains(msg, path) {
				t.Fatalf("error %q does not contain path %q", msg, path)
			}
		})
	}
}
