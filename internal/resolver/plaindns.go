package resolver

import (
	"net"

	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
)

// queryPlain 向单个传统递归 DNS 服务器发起 UDP 查询（A 记录）
func (r *Resolver) queryPlain(domain, server string) []string {
	c := &dns.Client{Timeout: r.dnsTimeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)

	in, _, err := c.Exchange(m, withDNSPort(server))
	if err != nil {
		log.Debugf("DNS查询失败 %s @ %s: %v", domain, server, err)
		return nil
	}

	var ips []string
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	return ips
}

// queryPlainAll 并发查询所有传统 DNS 服务器，合并后过滤保留网段
func (r *Resolver) queryPlainAll(domain string) []string {
	ips := fanOut(domain, r.servers, r.queryPlain)
	return filterReserved(ips, reservedNets)
}

// withDNSPort 在服务器地址缺少端口时补上 53
func withDNSPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}
