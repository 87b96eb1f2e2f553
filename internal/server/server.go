package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"GitHub_Hosts_Go/internal/output"
	"GitHub_Hosts_Go/internal/state"
	"GitHub_Hosts_Go/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// RunFunc 触发一次批量运行；progress 收到的每条消息会被推送给 WebSocket 客户端
type RunFunc func(progress func(message string)) *model.Snapshot

// Server 只读地对外暴露引擎的最新快照，并允许通过 WebSocket 触发一次运行
type Server struct {
	st  *state.State
	run RunFunc
	mux *http.ServeMux
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// New 构建 Server。run 为 nil 时 /ws/run 返回 404。
func New(st *state.State, run RunFunc) *Server {
	s := &Server{st: st, run: run, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/hosts", s.handleHosts)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.newRegistry(), promhttp.HandlerOpts{}))
	if run != nil {
		s.mux.HandleFunc("/ws/run", s.handleWebSocket)
	}
	return s
}

// ServeHTTP 实现 http.Handler，方便测试
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start 监听并阻塞服务
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Infof("HTTP服务已启动: http://%s", addr)
	log.Infof("  - 访问 http://localhost:%d/hosts 下载hosts", port)
	log.Infof("  - 访问 http://localhost:%d/stats 查看统计", port)
	return http.ListenAndServe(addr, s.mux)
}

// newRegistry 注册从 State 读数的指标，避免额外的指标更新路径
func (s *Server) newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "github_hosts_runs_total",
		Help: "Number of completed batch runs.",
	}, func() float64 {
		runs, _, _ := s.st.Rolling()
		return float64(runs)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "github_hosts_success_rate",
		Help: "Success rate of the last batch run in percent.",
	}, func() float64 {
		if snap := s.st.Snapshot(); snap != nil {
			return snap.SuccessRate()
		}
		return 0
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "github_hosts_last_run_duration_seconds",
		Help: "Wall-clock duration of the last batch run.",
	}, func() float64 {
		if snap := s.st.Snapshot(); snap != nil {
			return snap.Elapsed.Seconds()
		}
		return 0
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "github_hosts_last_update_timestamp_seconds",
		Help: "Unix timestamp of the last published snapshot.",
	}, func() float64 {
		if snap := s.st.Snapshot(); snap != nil {
			return float64(snap.StartTime.Unix())
		}
		return 0
	}))
	return reg
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	last := "未生成"
	if snap := s.st.Snapshot(); snap != nil {
		last = snap.StartTime.Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(w, indexHTML, output.ProgramName, output.Version, last)
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	snap := s.st.Snapshot()
	if snap == nil {
		fmt.Fprint(w, "# Hosts file not generated yet")
		return
	}
	fmt.Fprint(w, output.RenderHosts(snap))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	snap := s.st.Snapshot()
	if snap == nil {
		fmt.Fprint(w, "{}")
		return
	}

	runs, avgElapsed, avgSuccess := s.st.Rolling()
	payload := struct {
		model.Stats
		Runs           int     `json:"runs"`
		AvgElapsedTime float64 `json:"avg_elapsed_time"`
		AvgSuccessRate float64 `json:"avg_success_rate"`
	}{snap.Stats(), runs, avgElapsed, avgSuccess}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		log.Debugf("编码统计信息失败: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	health := map[string]interface{}{
		"status":  "healthy",
		"version": output.Version,
	}
	if snap := s.st.Snapshot(); snap != nil {
		health["last_update"] = snap.StartTime.Format(time.RFC3339)
	} else {
		health["last_update"] = nil
	}
	json.NewEncoder(w).Encode(health)
}

// wsMessage 是 WebSocket 推送的结构化消息
type wsMessage struct {
	Type    string      `json:"type"` // "log" 或 "result"
	Payload interface{} `json:"payload"`
}

// handleWebSocket 触发一次运行并把进度实时推给客户端。
// 所有写操作都经由唯一的 writer 协程串行化。
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	writeChan := make(chan wsMessage, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range writeChan {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debugf("WebSocket 写入失败: %v", err)
				return
			}
		}
	}()

	snap := s.run(func(message string) {
		select {
		case writeChan <- wsMessage{Type: "log", Payload: message}:
		default: // 客户端消费太慢时丢弃进度行，不阻塞引擎
		}
	})
	if snap != nil {
		writeChan <- wsMessage{Type: "result", Payload: snap.Stats()}
	}

	close(writeChan)
	<-done
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>%s v%s</title><meta charset="utf-8"></head>
<body>
<h1>GitHub Hosts</h1>
<p><strong>最后更新</strong>: %s</p>
<ul>
<li><a href="/hosts">GET /hosts</a> — 获取最新的hosts文件</li>
<li><a href="/stats">GET /stats</a> — 统计信息（JSON）</li>
<li><a href="/health">GET /health</a> — 健康检查</li>
<li><a href="/metrics">GET /metrics</a> — Prometheus 指标</li>
</ul>
</body>
</html>`
