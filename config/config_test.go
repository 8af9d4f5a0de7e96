package config

import (
	"path/filepath"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.json")

	cfg := NewDefaultConfig()
	err := cfg.WriteFile(file)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if got.Chain.Endpoint != cfg.Chain.Endpoint {
		t.Fatalf("endpoint %s != %s", got.Chain.Endpoint, cfg.Chain.Endpoint)
	}
}

func TestConfigSetGet(t *testing.T) {
	cfg := NewDefaultConfig()

	err := cfg.Set("chain.chainId", "5")
	if err != nil {
		t.Fatal(err)
	}
	v, err := cfg.Get("chain.chainId")
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != 5 {
		t.Fatalf("got %v", v)
	}

	err = cfg.Set("wallet.defaultName", `"Bad-Name!"`)
	if err == nil {
		t.Fatal("expected validation error")
	}
}
