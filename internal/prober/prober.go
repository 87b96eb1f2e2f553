package prober

import (
	"context"
	"net"
	"strconv"
	"time"

	"GitHub_Hosts_Go/pkg/model"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Prober 通过裸 TCP 握手测量单个 IP 的连接延迟。
// 只建连、不收发任何应用数据，连接成功后立即关闭。
type Prober struct {
	Port    int
	Timeout time.Duration
	Trials  int

	limiter *rate.Limiter
}

// New 构建 Prober。ratePerSec 限制全局每秒发起的 TCP 连接数，0 表示不限。
func New(port int, timeout time.Duration, trials int, ratePerSec int) *Prober {
	p := &Prober{Port: port, Timeout: timeout, Trials: trials}
	if ratePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return p
}

// ProbeOne 对 ip:port 执行一次 TCP 握手，返回毫秒延迟。
// 连接失败时第二个返回值为 false。
func (p *Prober) ProbeOne(ip string) (float64, bool) {
	if p.limiter != nil {
		if err := p.limiter.Wait(context.Background()); err != nil {
			return 0, false
		}
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(p.Port))
	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, p.Timeout)
	if err != nil {
		return 0, false
	}
	elapsed := time.Since(start)
	conn.Close()
	return float64(elapsed) / float64(time.Millisecond), true
}

// ProbeLatency 顺序执行多次 ProbeOne，取成功样本的中位数。
// 使用中位数而不是均值：小样本里单次握手重传会严重拉偏均值。
// 全部失败时返回 model.Unreachable。
func (p *Prober) ProbeLatency(ip string) float64 {
	samples := make([]float64, 0, p.Trials)
	for i := 0; i < p.Trials; i++ {
		if ms, ok := p.ProbeOne(ip); ok {
			samples = append(samples, ms)
		}
	}
	return median(samples)
}

// median 返回成功样本的中位数（偶数个样本时取中间两个的平均），
// 空样本集返回 model.Unreachable
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return model.Unreachable
	}
	m, err := stats.Median(samples)
	if err != nil {
		log.Debugf("计算延迟中位数失败: %v", err)
		return model.Unreachable
	}
	return m
}
