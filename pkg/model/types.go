package model

import (
	"math"
	"time"
)

// Unreachable 表示测速全部失败的延迟哨兵值（排序时自然排在所有有效延迟之后）
var Unreachable = math.Inf(1)

// RankedEntry 包含单个 IP 在一次运行中的测速结果
type RankedEntry struct {
	Address string  `json:"Address"`
	Latency float64 `json:"Latency"` // 毫秒；Unreachable 表示超时
}

// Reachable 报告该条目是否拥有有效的延迟估计
func (e RankedEntry) Reachable() bool {
	return !math.IsInf(e.Latency, 1)
}

// Snapshot 包含一次批量运行的完整结果及元数据。
// 一旦发布即不可变，消费方只能整体替换，不允许原地修改。
type Snapshot struct {
	Results   map[string][]RankedEntry
	Domains   []string // 原始目录顺序
	Level     string
	StartTime time.Time
	Elapsed   time.Duration
	Attempted int
	Succeeded int

	UseDoH   bool
	UseCache bool
	UseWeb   bool
	MultiIP  bool
}

// Stats 是对外暴露的统计信息（HTTP /stats 输出）
type Stats struct {
	TotalDomains int     `json:"total_domains"`
	SuccessCount int     `json:"success_count"`
	SuccessRate  float64 `json:"success_rate"`
	ElapsedTime  float64 `json:"elapsed_time"` // 秒
	Timestamp    string  `json:"timestamp"`
	Level        string  `json:"level"`
	UseDoH       bool    `json:"use_doh"`
	UseCache     bool    `json:"use_cache"`
	MultiIP      bool    `json:"multi_ip"`
}

// SuccessRate 返回成功解析的域名比例（百分比）
func (s *Snapshot) SuccessRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Attempted) * 100
}

// Stats 将快照元数据转换为统计信息结构
func (s *Snapshot) Stats() Stats {
	return Stats{
		TotalDomains: s.Attempted,
		SuccessCount: s.Succeeded,
		SuccessRate:  s.SuccessRate(),
		ElapsedTime:  s.Elapsed.Seconds(),
		Timestamp:    s.StartTime.Format(time.RFC3339),
		Level:        s.Level,
		UseDoH:       s.UseDoH,
		UseCache:     s.UseCache,
		MultiIP:      s.MultiIP,
	}
}
