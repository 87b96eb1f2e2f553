package resolver

import (
	"fmt"
	"io"
	"net/http"
	"regexp"

	log "github.com/sirupsen/logrus"
)

const (
	// scrapeUserAgent 伪装成浏览器，避免被查询页面拒绝
	scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	// scrapeMaxResults 页面内容无结构、噪声多，最多取前 5 个
	scrapeMaxResults = 5
)

var ipv4Regexp = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)

// queryScrape 第三层降级：从第三方 "本站 IP 查询" 页面抓取 IPv4 形状的文本
func (r *Resolver) queryScrape(domain string) []string {
	url := fmt.Sprintf(r.scrapeURL, domain)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := r.scrapeClient.Do(req)
	if err != nil {
		log.Debugf("Web爬虫失败 %s: %v", domain, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debugf("Web爬虫失败 %s: 状态码 %d", domain, resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	ips := filterReserved(dedupe(ipv4Regexp.FindAllString(string(body), -1)), scrapeJunkNets)
	if len(ips) > scrapeMaxResults {
		ips = ips[:scrapeMaxResults]
	}
	return ips
}
