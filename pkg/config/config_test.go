package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const baseConfig = `
environment: development
clickhouse:
  host: localhost
  database: finsight
`

func TestLoadParsesClassOverrides(t *testing.T) {
	path := writeConfig(t, baseConfig+`
analytics:
  classes:
    crypto:
      ma_windows: [5, 15]
      return_z_window: 20
      volatility_threshold: 0.2
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cc, ok := c.Analytics.Classes["crypto"]
	if !ok {
		t.Fatal("crypto class overrides missing")
	}
	if len(cc.MAWindows) != 2 || cc.MAWindows[0] != 5 || cc.MAWindows[1] != 15 {
		t.Fatalf("ma_windows: got %v, want [5 15]", cc.MAWindows)
	}
	if cc.ReturnZWindow != 20 {
		t.Fatalf("return_z_window: got %d, want 20", cc.ReturnZWindow)
	}
	if cc.VolatilityThreshold != 0.2 {
		t.Fatalf("volatility_threshold: got %v, want 0.2", cc.VolatilityThreshold)
	}
}

func TestValidateRejectsUnknownClassKey(t *testing.T) {
	path := writeConfig(t, baseConfig+`
analytics:
  classes:
    bonds:
      rsi_period: 7
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown class key to fail validation")
	}
}
