package main

import (
	"bytes"
	"strings"
	"testing"

	"namereg/internal/config"
)

func TestEnvName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"server.port", "NAMEREG_SERVER_PORT"},
		{"database.max_open_conns", "NAMEREG_DATABASE_MAX_OPEN_CONNS"},
		{"server.rate_limit.burst", "NAMEREG_SERVER_RATE_LIMIT_BURST"},
	}
	for _, tt := range tests {
		if got := envName(tt.key); got != tt.want {
			t.Errorf("envName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFlattenConfig(t *testing.T) {
	flat, err := flattenConfig(config.DefaultConfig())
	if err != nil {
		t.Fatalf("flattenConfig() error = %v", err)
	}

	want := map[string]string{
		"server.port":                           "8080",
		"server.host":                           "127.0.0.1",
		"server.rate_limit.enabled":             "false",
		"database.path":                         "test.db",
		"handler.strategy":                      "inline",
		"logging.file":                          `""`,
		"server.rate_limit.requests_per_second": "1000",
	}
	for key, value := range want {
		if flat[key] != value {
			t.Errorf("flat[%q] = %q, want %q", key, flat[key], value)
		}
	}
}

func TestWriteConfigHuman_Diff(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 9090
	cfg.Handler.Strategy = "offload"

	var buf bytes.Buffer
	if err := writeConfigHuman(&buf, cfg, true); err != nil {
		t.Fatalf("writeConfigHuman() error = %v", err)
	}

	want := "handler.strategy = offload (default: inline)\nserver.port = 9090 (default: 8080)\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteConfigHuman_AllDefaults(t *testing.T) {
	var buf bytes.Buffer
	if err := writeConfigHuman(&buf, config.DefaultConfig(), true); err != nil {
		t.Fatalf("writeConfigHuman() error = %v", err)
	}
	if !strings.Contains(buf.String(), "All values are defaults") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	if err := writeConfigHuman(&buf, config.DefaultConfig(), false); err != nil {
		t.Fatalf("writeConfigHuman() error = %v", err)
	}
	if !strings.Contains(buf.String(), "database.path = test.db\n") {
		t.Errorf("full listing missing database.path:\n%s", buf.String())
	}
}
