package state

import (
	"sync"
	"testing"
	"time"

	"GitHub_Hosts_Go/pkg/model"
)

func snapshotWith(succeeded, attempted int, elapsed time.Duration) *model.Snapshot {
	return &model.Snapshot{
		StartTime: time.Now(),
		Elapsed:   elapsed,
		Attempted: attempted,
		Succeeded: succeeded,
	}
}

func TestPublishAndSnapshot(t *testing.T) {
	s := New()
	if s.Snapshot() != nil {
		t.Error("未发布前快照应为 nil")
	}

	snap := snapshotWith(2, 3, time.Second)
	s.Publish(snap)

	if got := s.Snapshot(); got != snap {
		t.Error("应返回最近发布的快照")
	}

	runs, avgElapsed, avgSuccess := s.Rolling()
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if avgElapsed <= 0 || avgSuccess <= 0 {
		t.Errorf("滑动统计应为正值: elapsed=%v success=%v", avgElapsed, avgSuccess)
	}
}

func TestPublish_replacesWholeSnapshot(t *testing.T) {
	s := New()
	first := snapshotWith(1, 2, time.Second)
	second := snapshotWith(2, 2, 2*time.Second)

	s.Publish(first)
	s.Publish(second)

	if got := s.Snapshot(); got != second {
		t.Error("新快照应整体替换旧快照")
	}
	if runs, _, _ := s.Rolling(); runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

// 并发发布与读取不应竞态（配合 -race 使用）
func TestState_concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Publish(snapshotWith(1, 1, time.Millisecond))
				_ = s.Snapshot()
				s.Rolling()
			}
		}()
	}
	wg.Wait()

	if runs, _, _ := s.Rolling(); runs != 400 {
		t.Errorf("runs = %d, want 400", runs)
	}
}
