package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/anvil/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s

database:
  driver: "sqlite"
  dsn: ":memory:"

resources:
  dir: "./defs"

admin:
  base_path: "/backoffice/"
  events: false

logging:
  level: debug
  format: console

metrics:
  enabled: false
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
	if cfg.Database.Driver != config.DriverSQLite || cfg.Database.DSN != ":memory:" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Resources.Dir != "./defs" {
		t.Errorf("Resources.Dir = %s, want ./defs", cfg.Resources.Dir)
	}
	if cfg.Admin.BasePath != "/backoffice" {
		t.Errorf("Admin.BasePath = %s, want /backoffice", cfg.Admin.BasePath)
	}
	if cfg.Admin.Events {
		t.Error("Admin.Events should be false")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("default WriteTimeout = %v, want 60s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("default ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Driver != config.DriverSQLite3 {
		t.Errorf("default Database.Driver = %s, want sqlite3", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "anvil.db" {
		t.Errorf("default Database.DSN = %s, want anvil.db", cfg.Database.DSN)
	}
	if cfg.Resources.Dir != "resources" {
		t.Errorf("default Resources.Dir = %s, want resources", cfg.Resources.Dir)
	}
	if cfg.Admin.BasePath != "/admin" {
		t.Errorf("default Admin.BasePath = %s, want /admin", cfg.Admin.BasePath)
	}
	if !cfg.Admin.Events {
		t.Error("default Admin.Events should be true")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_DefaultDSNByDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{config.DriverMemory, ""},
		{config.DriverSQLite3, "anvil.db"},
		{config.DriverSQLite, "anvil.db"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := writeAndLoad(t, "database:\n  driver: "+tt.driver+"\n")
			if cfg.Database.DSN != tt.want {
				t.Errorf("Database.DSN = %q, want %q", cfg.Database.DSN, tt.want)
			}
		})
	}
}

func TestParse_PostgresNeedsDSN(t *testing.T) {
	_, err := config.Parse([]byte("database:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
	if !strings.Contains(err.Error(), "database.dsn is required") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ANVIL_DSN", "postgres://app@db/anvil")

	cfg := writeAndLoad(t, `
database:
  driver: postgres
  dsn: "${TEST_ANVIL_DSN}"
`)

	if cfg.Database.DSN != "postgres://app@db/anvil" {
		t.Errorf("Database.DSN = %s, want expanded value", cfg.Database.DSN)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANVIL_SERVER_HOST", "10.0.0.1")
	t.Setenv("ANVIL_SERVER_PORT", "7070")
	t.Setenv("ANVIL_SERVER_WRITE_TIMEOUT", "2m")
	t.Setenv("ANVIL_DATABASE_DRIVER", "memory")
	t.Setenv("ANVIL_RESOURCES_DIR", "/etc/anvil/resources")
	t.Setenv("ANVIL_ADMIN_BASE_PATH", "manage")
	t.Setenv("ANVIL_LOG_LEVEL", "warn")
	t.Setenv("ANVIL_METRICS_ENABLED", "no")

	cfg := writeAndLoad(t, `
server:
  host: "127.0.0.1"
  port: 9090
database:
  driver: sqlite3
`)

	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("Host = %s, want 10.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 2*time.Minute {
		t.Errorf("WriteTimeout = %v, want 2m", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Driver != config.DriverMemory {
		t.Errorf("Database.Driver = %s, want memory", cfg.Database.Driver)
	}
	if cfg.Resources.Dir != "/etc/anvil/resources" {
		t.Errorf("Resources.Dir = %s", cfg.Resources.Dir)
	}
	if cfg.Admin.BasePath != "/manage" {
		t.Errorf("Admin.BasePath = %s, want /manage", cfg.Admin.BasePath)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be overridden to false")
	}
}

func TestLoad_InvalidPortOverrideIgnored(t *testing.T) {
	t.Setenv("ANVIL_SERVER_PORT", "not-a-port")

	cfg := writeAndLoad(t, "server:\n  port: 9000\n")
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"unknown driver", "database:\n  driver: mysql\n", "database.driver"},
		{"postgres without dsn", "database:\n  driver: postgres\n", "database.dsn is required"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad level", "logging:\n  level: trace\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"path clash", "admin:\n  base_path: /metrics\n", "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail for missing file")
	}

	path := writeConfig(t, "server: [\n")
	if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("Load error = %v, want parse error", err)
	}
}

func TestLoadWithFallback(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9191\n")

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Server.Port)
	}

	t.Setenv("ANVIL_SERVER_PORT", "9292")
	cfg, err = config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback (env) error: %v", err)
	}
	if cfg.Server.Port != 9292 {
		t.Errorf("Port = %d, want 9292", cfg.Server.Port)
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anvil.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
