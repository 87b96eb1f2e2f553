package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 结构用于映射 config.yaml 文件的内容
type Config struct {
	DoHEndpoints []string `yaml:"doh_endpoints"`
	DNSServers   []string `yaml:"dns_servers"`
	ScrapeURL    string   `yaml:"scrape_url"`

	DNSTimeout    int `yaml:"dns_timeout"`    // 秒
	ScrapeTimeout int `yaml:"scrape_timeout"` // 秒

	TCPPort      int `yaml:"tcp_port"`
	TCPTimeout   int `yaml:"tcp_timeout"` // 秒
	TCPTestCount int `yaml:"tcp_test_count"`

	TopIPCount       int `yaml:"top_ip_count"`
	HostConcurrency  int `yaml:"host_concurrency"`
	ProbeConcurrency int `yaml:"probe_concurrency"`
	ProbeRateLimit   int `yaml:"probe_rate_limit"` // 每秒最大 TCP 连接数，0 为不限

	CacheFile    string `yaml:"cache_file"`
	CacheEnabled bool   `yaml:"cache_enabled"`

	OutputFile     string `yaml:"output_file"`
	DaemonInterval int    `yaml:"daemon_interval"` // 秒
	HTTPPort       int    `yaml:"http_port"`
}

// LoadConfig 从指定路径加载和解析 YAML 配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 为缺失或非法的配置项填充默认值
func (c *Config) applyDefaults() {
	if len(c.DoHEndpoints) == 0 {
		c.DoHEndpoints = []string{
			"https://1.1.1.1/dns-query",
			"https://8.8.8.8/resolve",
			"https://223.5.5.5/resolve",
		}
	}
	if len(c.DNSServers) == 0 {
		c.DNSServers = []string{"1.1.1.1", "8.8.8.8", "223.5.5.5", "114.114.114.114"}
	}
	if c.ScrapeURL == "" {
		c.ScrapeURL = "https://sites.ipaddress.com/%s"
	}
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = 3
	}
	if c.ScrapeTimeout <= 0 {
		c.ScrapeTimeout = 5
	}
	if c.TCPPort <= 0 {
		c.TCPPort = 443
	}
	if c.TCPTimeout <= 0 {
		c.TCPTimeout = 2
	}
	if c.TCPTestCount <= 0 {
		c.TCPTestCount = 3
	}
	if c.TopIPCount <= 0 {
		c.TopIPCount = 3
	}
	if c.HostConcurrency <= 0 {
		c.HostConcurrency = 10
	}
	if c.ProbeConcurrency <= 0 {
		c.ProbeConcurrency = 5
	}
	if c.CacheFile == "" {
		c.CacheFile = ".github_hosts_cache.json"
	}
	if c.OutputFile == "" {
		c.OutputFile = "github_hosts"
	}
	if c.DaemonInterval <= 0 {
		c.DaemonInterval = 600
	}
	if c.HTTPPort <= 0 {
		c.HTTPPort = 8080
	}
}

// Default 返回一份全部使用默认值的配置
func Default() *Config {
	cfg := &Config{CacheEnabled: true}
	cfg.applyDefaults()
	return cfg
}
