package state

import (
	"sync"

	"GitHub_Hosts_Go/pkg/model"

	"github.com/VividCortex/ewma"
)

// State 持有对下游消费方（HTTP 服务等）可见的最新运行快照。
// 快照发布是整体替换，读取方永远看不到半更新的状态。
// 同时用指数滑动平均维护跨周期的服务级统计（仅用于展示，不参与优选）。
type State struct {
	mu         sync.Mutex
	snapshot   *model.Snapshot
	runs       int
	avgElapsed ewma.MovingAverage
	avgSuccess ewma.MovingAverage
}

// New 构建空状态
func New() *State {
	return &State{
		avgElapsed: ewma.NewMovingAverage(),
		avgSuccess: ewma.NewMovingAverage(),
	}
}

// Publish 原子地用新快照替换旧快照，并更新滑动统计
func (s *State) Publish(snap *model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.runs++
	s.avgElapsed.Add(snap.Elapsed.Seconds())
	s.avgSuccess.Add(snap.SuccessRate())
}

// Snapshot 返回最近发布的快照，尚未发布时返回 nil。
// 快照不可变，调用方可以无锁读取其内容。
func (s *State) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Rolling 返回 (运行次数, 耗时滑动平均秒数, 成功率滑动平均百分比)
func (s *State) Rolling() (runs int, avgElapsed, avgSuccess float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.avgElapsed.Value(), s.avgSuccess.Value()
}
