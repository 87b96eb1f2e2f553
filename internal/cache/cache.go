package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Entry 是持久化的单条测速记录，按 (域名, IP) 维护累计平均延迟。
// 平均值是所有历史成功测速的累计均值，新旧测量等权——这是有意的取舍，
// 为了与既有缓存文件保持兼容，不做时间窗口或指数衰减。
type Entry struct {
	Count       int     `json:"count"`
	AvgLatency  float64 `json:"avg_latency"`
	LastSuccess string  `json:"last_success,omitempty"` // ISO-8601
}

// Cache 是以 "域名:IP" 为键的持久化测速缓存。
// 禁用时所有操作都是空操作；任何 I/O 错误都按冷启动/空操作处理，从不上抛。
type Cache struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

// New 构建缓存。path 为空或 enabled 为 false 时缓存被禁用。
func New(path string, enabled bool) *Cache {
	if path == "" {
		enabled = false
	}
	return &Cache{path: path, enabled: enabled}
}

// Enabled 报告缓存是否启用
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Key 生成 (域名, IP) 对应的缓存键
func Key(domain, ip string) string {
	return domain + ":" + ip
}

// Load 读取完整的持久化存储。文件缺失或损坏时返回空映射。
func (c *Cache) Load() map[string]Entry {
	if !c.enabled {
		return map[string]Entry{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Cache) loadLocked() map[string]Entry {
	store := map[string]Entry{}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return store
	}
	if err := json.Unmarshal(data, &store); err != nil {
		log.Debugf("缓存文件 '%s' 损坏，按冷启动处理: %v", c.path, err)
		return map[string]Entry{}
	}
	return store
}

// Update 记录一次成功测速：累计均值 avg' = (avg*count + latency) / (count+1)，
// 计数加一并同步落盘（整存整取，每次更新前重新读取文件）。
func (c *Cache) Update(domain, ip string, latency float64) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.loadLocked()
	key := Key(domain, ip)
	entry := store[key]
	entry.AvgLatency = (entry.AvgLatency*float64(entry.Count) + latency) / float64(entry.Count+1)
	entry.Count++
	entry.LastSuccess = time.Now().Format(time.RFC3339)
	store[key] = entry

	if err := c.saveLocked(store); err != nil {
		log.Debugf("保存缓存失败: %v", err)
	}
}

func (c *Cache) saveLocked(store map[string]Entry) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化缓存失败: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}

// CandidatesFor 返回该域名历史上记录过的全部地址（不论多久以前），
// 按字典序排序以保证跨运行的确定性。
func (c *Cache) CandidatesFor(domain string) []string {
	if !c.enabled {
		return nil
	}
	store := c.Load()
	prefix := domain + ":"
	var ips []string
	for key := range store {
		if strings.HasPrefix(key, prefix) {
			ips = append(ips, key[len(prefix):])
		}
	}
	sort.Strings(ips)
	return ips
}
