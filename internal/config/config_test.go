package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tcp_port: 8443
top_ip_count: 5
cache_enabled: true
dns_servers:
  - 9.9.9.9
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.TCPPort != 8443 {
		t.Errorf("tcp_port = %d, want 8443", cfg.TCPPort)
	}
	if cfg.TopIPCount != 5 {
		t.Errorf("top_ip_count = %d, want 5", cfg.TopIPCount)
	}
	if len(cfg.DNSServers) != 1 || cfg.DNSServers[0] != "9.9.9.9" {
		t.Errorf("dns_servers = %v", cfg.DNSServers)
	}
	// 未配置的字段回落到默认值
	if cfg.TCPTestCount != 3 {
		t.Errorf("tcp_test_count 默认值 = %d, want 3", cfg.TCPTestCount)
	}
	if cfg.HostConcurrency != 10 {
		t.Errorf("host_concurrency 默认值 = %d, want 10", cfg.HostConcurrency)
	}
	if len(cfg.DoHEndpoints) == 0 {
		t.Error("doh_endpoints 默认值不应为空")
	}
}

func TestLoadConfig_missing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("文件缺失应返回错误")
	}
}

func TestLoadConfig_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tcp_port: [443"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("非法 YAML 应返回错误")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.CacheEnabled {
		t.Error("默认配置应启用缓存")
	}
	if cfg.TCPPort != 443 || cfg.TCPTimeout != 2 || cfg.TCPTestCount != 3 {
		t.Errorf("TCP 测速默认值不符: %+v", cfg)
	}
	if cfg.TopIPCount != 3 || cfg.ProbeConcurrency != 5 || cfg.HostConcurrency != 10 {
		t.Errorf("并发与优选默认值不符: %+v", cfg)
	}
	if cfg.DaemonInterval != 600 || cfg.HTTPPort != 8080 {
		t.Errorf("Daemon 默认值不符: %+v", cfg)
	}
}
