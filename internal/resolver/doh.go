package resolver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// dohAnswer 对应 DoH JSON API 响应中的单条应答记录
type dohAnswer struct {
	Type int    `json:"type"`
	Data string `json:"data"`
}

type dohResponse struct {
	Answer []dohAnswer `json:"Answer"`
}

// queryDoH 向单个 DoH 端点发起 JSON API 查询（A 记录）
func (r *Resolver) queryDoH(domain, endpoint string) []string {
	url := fmt.Sprintf("%s?name=%s&type=A", endpoint, domain)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("accept", "application/dns-json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Debugf("DoH查询失败 %s @ %s: %v", domain, endpoint, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debugf("DoH查询失败 %s @ %s: 状态码 %d", domain, endpoint, resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	var parsed dohResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Debugf("DoH响应解析失败 %s @ %s: %v", domain, endpoint, err)
		return nil
	}

	var ips []string
	for _, ans := range parsed.Answer {
		if ans.Type == 1 { // A 记录
			ips = append(ips, ans.Data)
		}
	}
	return ips
}

// queryDoHAll 并发查询所有 DoH 端点并合并结果
func (r *Resolver) queryDoHAll(domain string) []string {
	return fanOut(domain, r.endpoints, r.queryDoH)
}
