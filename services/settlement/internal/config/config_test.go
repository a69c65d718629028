package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr != ":8084" {
		t.Fatalf("default addr = %q", c.HTTPAddr)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "http_addr: \":9090\"\nkafka:\n  brokers: [\"k1:9092\"]\nroles:\n  spv: [\"spv_1\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("KAFKA_BROKERS", "k2:9092, k3:9092")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr != ":9090" {
		t.Fatalf("addr = %q", c.HTTPAddr)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[0] != "k2:9092" {
		t.Fatalf("env override lost: %v", c.Kafka.Brokers)
	}
	if len(c.Roles["spv"]) != 1 {
		t.Fatalf("roles not parsed: %v", c.Roles)
	}
}
