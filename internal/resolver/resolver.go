package resolver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"GitHub_Hosts_Go/internal/config"

	log "github.com/sirupsen/logrus"
)

// Resolver 通过三层降级通道把域名解析为候选 IP 集合：
// DoH → 传统 DNS → Web 爬虫。任何一层取得至少一个地址即短路返回，
// 所有层都失败时返回空集，对调用方不产生错误。
type Resolver struct {
	endpoints  []string
	servers    []string
	scrapeURL  string
	dnsTimeout time.Duration

	useDoH bool
	useWeb bool

	httpClient   *http.Client
	scrapeClient *http.Client
}

// channel 表示一个解析通道：一个纯函数 (域名) -> 地址列表
type channel struct {
	name string
	fn   func(domain string) []string
}

// New 根据配置构建 Resolver
func New(cfg *config.Config, useDoH, useWeb bool) *Resolver {
	return &Resolver{
		endpoints:    cfg.DoHEndpoints,
		servers:      cfg.DNSServers,
		scrapeURL:    cfg.ScrapeURL,
		dnsTimeout:   time.Duration(cfg.DNSTimeout) * time.Second,
		useDoH:       useDoH,
		useWeb:       useWeb,
		httpClient:   &http.Client{Timeout: time.Duration(cfg.DNSTimeout) * time.Second},
		scrapeClient: &http.Client{Timeout: time.Duration(cfg.ScrapeTimeout) * time.Second},
	}
}

// Resolve 依次尝试各解析通道，返回第一个非空的候选地址集合。
// 通道顺序固定、不自适应：某个域名在某一层失败不影响下一个域名重新走完整链路。
func (r *Resolver) Resolve(domain string) []string {
	channels := []channel{}
	if r.useDoH {
		channels = append(channels, channel{"DoH", r.queryDoHAll})
	}
	channels = append(channels, channel{"传统DNS", r.queryPlainAll})
	if r.useWeb {
		channels = append(channels, channel{"Web爬虫", r.queryScrape})
	}

	for _, ch := range channels {
		ips := ch.fn(domain)
		if len(ips) > 0 {
			log.Debugf("%s - %s成功: %d个IP", domain, ch.name, len(ips))
			return ips
		}
	}
	return nil
}

// fanOut 将同一域名并发发往一组服务器，合并去重后返回。
// 服务器列表很小且固定，不再额外限流。
func fanOut(domain string, servers []string, query func(domain, server string) []string) []string {
	var (
		all []string
		wg  sync.WaitGroup
		mu  sync.Mutex
	)
	for _, srv := range servers {
		wg.Add(1)
		go func(srv string) {
			defer wg.Done()
			ips := query(domain, srv)
			mu.Lock()
			all = append(all, ips...)
			mu.Unlock()
		}(srv)
	}
	wg.Wait()
	return dedupe(all)
}

// dedupe 去重并保持首次出现的顺序，保证候选顺序跨运行可复现
func dedupe(ips []string) []string {
	seen := make(map[string]struct{}, len(ips))
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out
}

// IPNetSet 用于检查 IP 是否落在一组保留网段内
type IPNetSet struct {
	nets []*net.IPNet
}

// Contains 检查给定的 IP 字面量是否在集合中
func (s *IPNetSet) Contains(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true // 无法解析的字面量一律视为垃圾
	}
	for _, n := range s.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func mustCIDRSet(cidrs ...string) *IPNetSet {
	s := &IPNetSet{}
	for _, c := range cidrs {
		_, ipNet, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		s.nets = append(s.nets, ipNet)
	}
	return s
}

// 保留/链路本地网段：出现在解析结果里属于污染产物，不是真实目的地址
var reservedNets = mustCIDRSet("127.0.0.0/8", "0.0.0.0/8", "169.254.0.0/16")

// 爬虫页面额外会混入广播段的噪声
var scrapeJunkNets = mustCIDRSet("127.0.0.0/8", "0.0.0.0/8", "169.254.0.0/16", "255.0.0.0/8")

func filterReserved(ips []string, junk *IPNetSet) []string {
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if junk.Contains(ip) {
			continue
		}
		out = append(out, ip)
	}
	return out
}
