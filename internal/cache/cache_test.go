package cache

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "cache.json"), true)
}

func TestUpdate_cumulativeMean(t *testing.T) {
	c := newTestCache(t)

	c.Update("github.com", "1.2.3.4", 10)
	c.Update("github.com", "1.2.3.4", 20)
	c.Update("github.com", "1.2.3.4", 30)

	entry, ok := c.Load()[Key("github.com", "1.2.3.4")]
	if !ok {
		t.Fatal("更新后的条目应该存在")
	}
	if entry.Count != 3 {
		t.Errorf("count = %d, want 3", entry.Count)
	}
	if entry.AvgLatency != 20 {
		t.Errorf("avg_latency = %v, want 20", entry.AvgLatency)
	}
	if entry.LastSuccess == "" {
		t.Error("last_success 应被填充")
	}
}

// 常数输入收敛到自身：同一延迟更新 k 次后均值仍等于该延迟
func TestUpdate_constantInputConverges(t *testing.T) {
	c := newTestCache(t)

	for i := 0; i < 5; i++ {
		c.Update("github.com", "1.2.3.4", 42)
	}

	entry := c.Load()[Key("github.com", "1.2.3.4")]
	if entry.Count != 5 {
		t.Errorf("count = %d, want 5", entry.Count)
	}
	if math.Abs(entry.AvgLatency-42) > 1e-9 {
		t.Errorf("avg_latency = %v, want 42", entry.AvgLatency)
	}
}

func TestUpdate_persistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	New(path, true).Update("github.com", "1.2.3.4", 12)

	entry, ok := New(path, true).Load()[Key("github.com", "1.2.3.4")]
	if !ok {
		t.Fatal("重建实例后条目应仍然存在")
	}
	if entry.AvgLatency != 12 {
		t.Errorf("avg_latency = %v, want 12", entry.AvgLatency)
	}
}

func TestCandidatesFor(t *testing.T) {
	c := newTestCache(t)

	c.Update("github.com", "9.9.9.9", 30)
	c.Update("github.com", "1.2.3.4", 10)
	c.Update("api.github.com", "5.6.7.8", 20)

	got := c.CandidatesFor("github.com")
	want := []string{"1.2.3.4", "9.9.9.9"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CandidatesFor() 结果不符 (-want +got):\n%s", diff)
	}

	if got := c.CandidatesFor("unknown.test"); len(got) != 0 {
		t.Errorf("未知域名应返回空列表，实际 %v", got)
	}
}

func TestLoad_missingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.json"), true)
	if got := c.Load(); len(got) != 0 {
		t.Errorf("缺失文件应按冷启动返回空映射，实际 %v", got)
	}
}

func TestLoad_corruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(path, true)
	if got := c.Load(); len(got) != 0 {
		t.Errorf("损坏文件应按冷启动返回空映射，实际 %v", got)
	}

	// 损坏的存储可以被后续更新直接覆盖
	c.Update("github.com", "1.2.3.4", 10)
	if _, ok := c.Load()[Key("github.com", "1.2.3.4")]; !ok {
		t.Error("覆盖损坏文件后的更新应可读回")
	}
}

func TestDisabledCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, false)

	c.Update("github.com", "1.2.3.4", 10)

	if len(c.Load()) != 0 {
		t.Error("禁用的缓存 Load 应返回空映射")
	}
	if got := c.CandidatesFor("github.com"); len(got) != 0 {
		t.Errorf("禁用的缓存不应返回候选地址，实际 %v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("禁用的缓存不应落盘")
	}
}

func TestKey_ipv6(t *testing.T) {
	c := newTestCache(t)
	c.Update("github.com", "2606:50c0:8000::153", 25)

	got := c.CandidatesFor("github.com")
	want := []string{"2606:50c0:8000::153"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("IPv6 地址的键解析不符 (-want +got):\n%s", diff)
	}
}
