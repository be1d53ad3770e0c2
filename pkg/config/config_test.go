package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearFeishuEnv unsets every variable Load reads so host settings cannot leak in.
func clearFeishuEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "FEISHU_APP_ID", "FEISHU_APP_SECRET",
		"FEISHU_BITABLE_APP_TOKEN", "FEISHU_BITABLE_TABLE_ID",
		"FEISHU_PROJECT_APP_TOKEN", "FEISHU_BITABLE_PROJECT_TABLE_ID",
		"FEISHU_DEAL_APP_TOKEN", "FEISHU_BITABLE_DEAL_TABLE_ID",
		"FEISHU_KANBAN_APP_TOKEN", "FEISHU_KANBAN_BOARD_ID",
		"FEISHU_PERSON_ID_MAP", "FEISHU_USER_ID_MAP", "REDIS_HOST",
		"DATE_SERIAL_MIN", "DATE_SERIAL_MAX", "SCAN_PAGE_SIZE", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearFeishuEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
port: "4000"
env: "test"
feishu:
  bitable_app_token: "app-from-yaml"
  bitable_table_id: "tbl-customers"
cache:
  field_map_ttl: 30s
redis:
  host: "redis.example.com"
  port: 6380
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFrom(configPath, "test-version")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.Feishu.BitableAppToken != "app-from-yaml" {
		t.Errorf("expected BitableAppToken from yaml, got %s", cfg.Feishu.BitableAppToken)
	}
	if cfg.Cache.FieldMapTTL != 30*time.Second {
		t.Errorf("expected FieldMapTTL=30s, got %v", cfg.Cache.FieldMapTTL)
	}
	if cfg.Redis.Port != 6380 || !cfg.Redis.Enabled() {
		t.Errorf("expected redis enabled on port 6380, got %+v", cfg.Redis)
	}
}

func TestLoad_MissingConfigFileUsesDefaults(t *testing.T) {
	clearFeishuEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Port != "4000" {
		t.Errorf("expected default Port=4000, got %s", cfg.Port)
	}
	if cfg.Cache.FieldMapTTL != 60*time.Second {
		t.Errorf("expected FieldMapTTL=60s, got %v", cfg.Cache.FieldMapTTL)
	}
	if cfg.Cache.PersonIndexTTL != 5*time.Minute {
		t.Errorf("expected PersonIndexTTL=5m, got %v", cfg.Cache.PersonIndexTTL)
	}
	if cfg.Cache.ScanPageSize != 200 {
		t.Errorf("expected ScanPageSize=200, got %d", cfg.Cache.ScanPageSize)
	}
	if cfg.Dates.SerialMin != 20000 || cfg.Dates.SerialMax != 60000 {
		t.Errorf("unexpected serial window (%v, %v)", cfg.Dates.SerialMin, cfg.Dates.SerialMax)
	}
	if cfg.Redis.Enabled() {
		t.Error("expected redis to be disabled by default")
	}
	if len(cfg.Feishu.PersonIDMap) != 0 {
		t.Errorf("expected empty person map, got %v", cfg.Feishu.PersonIDMap)
	}
}

func TestLoad_TokenFallbacks(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("FEISHU_BITABLE_APP_TOKEN", "app-main")
	t.Setenv("FEISHU_BITABLE_DEAL_TABLE_ID", "tbl-deals")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Feishu.ProjectAppToken != "app-main" {
		t.Errorf("expected project token to fall back to bitable token, got %q", cfg.Feishu.ProjectAppToken)
	}
	if cfg.Feishu.DealAppToken != "app-main" {
		t.Errorf("expected deal token to fall back through project token, got %q", cfg.Feishu.DealAppToken)
	}
	if cfg.Feishu.KanbanAppToken != "app-main" {
		t.Errorf("expected kanban token to fall back to bitable token, got %q", cfg.Feishu.KanbanAppToken)
	}
}

func TestLoad_ExplicitDealTokenWins(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("FEISHU_BITABLE_APP_TOKEN", "app-main")
	t.Setenv("FEISHU_PROJECT_APP_TOKEN", "app-projects")
	t.Setenv("FEISHU_DEAL_APP_TOKEN", "app-deals")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Feishu.ProjectAppToken != "app-projects" {
		t.Errorf("got project token %q", cfg.Feishu.ProjectAppToken)
	}
	if cfg.Feishu.DealAppToken != "app-deals" {
		t.Errorf("got deal token %q", cfg.Feishu.DealAppToken)
	}
}

func TestLoad_LegacyPersonMapAlias(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("FEISHU_USER_ID_MAP", `{"张三":"ou_123"}`)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if got := cfg.Feishu.PersonIDMap["张三"]; got != "ou_123" {
		t.Errorf("expected legacy alias to be parsed, got %q", got)
	}
}

func TestLoad_CORSOriginsFromEnv(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("CORS_ORIGINS", "http://localhost:5173,https://bd.example.com")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), "test-version")
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://bd.example.com" {
		t.Errorf("expected two CORS origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoad_RejectsEmptySerialWindow(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("DATE_SERIAL_MIN", "60000")
	t.Setenv("DATE_SERIAL_MAX", "20000")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev"); err == nil {
		t.Fatal("expected error for inverted serial window")
	}
}

func TestLoad_RejectsSerialWindowBeyondYear9999(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("DATE_SERIAL_MAX", "3000000")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev"); err == nil {
		t.Fatal("expected error for serial window past 9999-12-31")
	}
}

func TestLoad_AcceptsWideSerialWindow(t *testing.T) {
	clearFeishuEnv(t)
	t.Setenv("DATE_SERIAL_MAX", "300000")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dates.SerialMax != 300000 {
		t.Errorf("expected serial max 300000, got %v", cfg.Dates.SerialMax)
	}
}

func TestParsePersonIDMap(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"json object", `{"张三":"ou_1","李四":"ou_2"}`, map[string]string{"张三": "ou_1", "李四": "ou_2"}},
		{"yaml mapping", "张三: ou_1\n", map[string]string{"张三": "ou_1"}},
		{"malformed", `{"张三":`, map[string]string{}},
		{"not an object", `["ou_1"]`, map[string]string{}},
		{"blank ids dropped", `{"张三":"  ","李四":null}`, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePersonIDMap(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePersonIDMap(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParsePersonIDMap(%q)[%q] = %q, want %q", tt.raw, k, got[k], v)
				}
			}
		})
	}
}
