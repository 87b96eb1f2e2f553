package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"GitHub_Hosts_Go/internal/cache"
	"GitHub_Hosts_Go/internal/config"
	"GitHub_Hosts_Go/internal/prober"
	"GitHub_Hosts_Go/internal/resolver"
	"GitHub_Hosts_Go/pkg/model"

	log "github.com/sirupsen/logrus"
)

// ProgressCallback 是一个用于报告进度的回调函数类型
type ProgressCallback func(message string)

// Options 控制单次运行的行为开关
type Options struct {
	Level    string
	UseDoH   bool
	UseCache bool
	UseWeb   bool
	MultiIP  bool
	TopN     int
}

// Engine 把解析、缓存、测速编排为对单个域名的优选流水线，
// 并在有界并发下把流水线扇出到整个域名目录。
type Engine struct {
	cfg   *config.Config
	cache *cache.Cache
	opts  Options

	// 可替换的解析与测速入口，默认接到 resolver/prober 实现
	resolveFn func(domain string) []string
	probeFn   func(ip string) float64

	progress ProgressCallback
}

// New 构建 Engine。progressCb 可以为 nil。
func New(cfg *config.Config, opts Options, ca *cache.Cache, progressCb ProgressCallback) *Engine {
	if opts.TopN <= 0 {
		opts.TopN = cfg.TopIPCount
	}
	if progressCb == nil {
		progressCb = func(string) {}
	}
	r := resolver.New(cfg, opts.UseDoH, opts.UseWeb)
	p := prober.New(cfg.TCPPort, time.Duration(cfg.TCPTimeout)*time.Second, cfg.TCPTestCount, cfg.ProbeRateLimit)
	return &Engine{
		cfg:       cfg,
		cache:     ca,
		opts:      opts,
		resolveFn: r.Resolve,
		probeFn:   p.ProbeLatency,
		progress:  progressCb,
	}
}

// gatherCandidates 合并实时解析结果与缓存中的历史地址。
// 解析结果在前、保持解析顺序，缓存补充的地址排在后面；
// 这个顺序决定了全部测速失败时降级条目选用哪个地址。
func (e *Engine) gatherCandidates(domain string) []string {
	candidates := e.resolveFn(domain)
	if e.opts.UseCache {
		seen := make(map[string]struct{}, len(candidates))
		for _, ip := range candidates {
			seen[ip] = struct{}{}
		}
		for _, ip := range e.cache.CandidatesFor(domain) {
			if _, ok := seen[ip]; !ok {
				candidates = append(candidates, ip)
			}
		}
	}
	return candidates
}

// RankHostname 对单个域名执行完整的优选流水线，返回排序截断后的结果。
// 无任何候选地址时返回空结果；有候选但全部测速失败时返回单条超时降级条目。
func (e *Engine) RankHostname(domain string) []model.RankedEntry {
	log.Infof("处理: %s", domain)

	candidates := e.gatherCandidates(domain)
	if len(candidates) == 0 {
		log.Warnf("%s - 未找到IP", domain)
		return nil
	}
	log.Debugf("%s - 找到%d个IP", domain, len(candidates))

	// 域名内测速并发上限：min(候选数, probe_concurrency)，与批量级别的并发互相独立
	limit := e.cfg.ProbeConcurrency
	if len(candidates) < limit {
		limit = len(candidates)
	}

	var (
		entries []model.RankedEntry
		wg      sync.WaitGroup
		mu      sync.Mutex
	)
	sem := make(chan struct{}, limit)

	for _, ip := range candidates {
		wg.Add(1)
		go func(ip string) {
			sem <- struct{}{}
			defer func() {
				<-sem
				wg.Done()
			}()

			latency := e.probeFn(ip)
			entry := model.RankedEntry{Address: ip, Latency: latency}
			if entry.Reachable() {
				log.Debugf("%s - %s: %.2fms", domain, ip, latency)
				e.cache.Update(domain, ip, latency)
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
		}(ip)
	}
	wg.Wait()

	// 按延迟升序，超时条目排在最后；延迟相同时按地址字典序，保证跨运行稳定
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Latency != entries[j].Latency {
			return entries[i].Latency < entries[j].Latency
		}
		return entries[i].Address < entries[j].Address
	})

	var valid []model.RankedEntry
	for _, entry := range entries {
		if entry.Reachable() {
			valid = append(valid, entry)
		}
	}

	if len(valid) > 0 {
		if len(valid) > e.opts.TopN {
			valid = valid[:e.opts.TopN]
		}
		log.Infof("%s - 最快: %s", domain, summarize(valid))
		return valid
	}

	// 有候选但全部超时：返回候选顺序里的第一个地址作为未验证的降级结果
	log.Warnf("%s - 所有IP测速失败，使用默认: %s", domain, candidates[0])
	return []model.RankedEntry{{Address: candidates[0], Latency: model.Unreachable}}
}

// RunBatch 在有界工作池下把 RankHostname 扇出到整个域名目录并汇总为快照。
// 单个域名的意外 panic 被捕获并记录，不会中断整个批次。
func (e *Engine) RunBatch(domains []string) *model.Snapshot {
	e.progress(fmt.Sprintf("开始处理 %d 个域名...", len(domains)))
	start := time.Now()

	var (
		results = make(map[string][]model.RankedEntry)
		wg      sync.WaitGroup
		mu      sync.Mutex
	)
	sem := make(chan struct{}, e.cfg.HostConcurrency)

	for _, domain := range domains {
		wg.Add(1)
		go func(domain string) {
			sem <- struct{}{}
			defer func() {
				<-sem
				wg.Done()
			}()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("处理失败 %s: %v", domain, r)
				}
			}()

			entries := e.RankHostname(domain)
			if len(entries) > 0 {
				mu.Lock()
				results[domain] = entries
				mu.Unlock()
				e.progress(fmt.Sprintf("%s -> %s", domain, summarize(entries)))
			}
		}(domain)
	}
	wg.Wait()

	snap := &model.Snapshot{
		Results:   results,
		Domains:   domains,
		Level:     e.opts.Level,
		StartTime: start,
		Elapsed:   time.Since(start),
		Attempted: len(domains),
		Succeeded: len(results),
		UseDoH:    e.opts.UseDoH,
		UseCache:  e.opts.UseCache,
		UseWeb:    e.opts.UseWeb,
		MultiIP:   e.opts.MultiIP,
	}
	e.progress(fmt.Sprintf("完成: 成功率 %d/%d (%.1f%%)，耗时 %.2f秒",
		snap.Succeeded, snap.Attempted, snap.SuccessRate(), snap.Elapsed.Seconds()))
	return snap
}

func summarize(entries []model.RankedEntry) string {
	out := ""
	for i, entry := range entries {
		if i > 0 {
			out += ", "
		}
		if entry.Reachable() {
			out += fmt.Sprintf("%s(%.0fms)", entry.Address, entry.Latency)
		} else {
			out += fmt.Sprintf("%s(timeout)", entry.Address)
		}
	}
	return out
}
