package output

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"GitHub_Hosts_Go/pkg/model"

	"github.com/google/go-cmp/cmp"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Results: map[string][]model.RankedEntry{
			"github.com": {
				{Address: "1.2.3.4", Latency: 12.3},
				{Address: "1.2.3.5", Latency: 45},
			},
			"api.github.com": {
				{Address: "9.9.9.9", Latency: model.Unreachable},
			},
		},
		Domains:   []string{"github.com", "api.github.com", "gone.test"},
		Level:     "core",
		StartTime: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Elapsed:   3 * time.Second,
		Attempted: 3,
		Succeeded: 2,
		MultiIP:   true,
	}
}

func TestRenderHosts_format(t *testing.T) {
	content := RenderHosts(testSnapshot())

	wantLine := fmt.Sprintf("%-20s %-50s # 12.3ms", "1.2.3.4", "github.com")
	if !strings.Contains(content, wantLine) {
		t.Errorf("渲染内容缺少条目行 %q:\n%s", wantLine, content)
	}
	if !strings.Contains(content, "# timeout") {
		t.Error("全部超时的域名应带 # timeout 注释")
	}
	if !strings.Contains(content, StartMarker) || !strings.Contains(content, EndMarker) {
		t.Error("渲染内容应包含起止标记")
	}
	if !strings.Contains(content, "# 成功率: 2/3 (66.7%)") {
		t.Errorf("头部成功率不符:\n%s", content)
	}
	if strings.Contains(content, "gone.test") {
		t.Error("没有任何地址的域名不应出现在输出里")
	}
}

func TestRenderHosts_catalogueOrder(t *testing.T) {
	content := RenderHosts(testSnapshot())
	if strings.Index(content, "github.com") > strings.Index(content, "api.github.com") {
		t.Error("条目应按目录原始顺序排列")
	}
}

func TestRenderHosts_singleIPMode(t *testing.T) {
	snap := testSnapshot()
	snap.MultiIP = false

	entries := ParseHosts(RenderHosts(snap))
	count := 0
	for _, e := range entries {
		if e.Hostname == "github.com" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("关闭多 IP 后每个域名应只有一行，github.com 实际 %d 行", count)
	}
	if entries[0].Address != "1.2.3.4" {
		t.Errorf("保留的应是最快的地址，实际 %s", entries[0].Address)
	}
}

// 渲染再解析应还原地址集合与顺序（延迟注释不要求往返）
func TestRenderHosts_roundTrip(t *testing.T) {
	snap := testSnapshot()
	got := ParseHosts(RenderHosts(snap))

	want := []HostsEntry{
		{Address: "1.2.3.4", Hostname: "github.com"},
		{Address: "1.2.3.5", Hostname: "github.com"},
		{Address: "9.9.9.9", Hostname: "api.github.com"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("往返解析结果不符 (-want +got):\n%s", diff)
	}
}

func TestParseHosts_skipsGarbage(t *testing.T) {
	content := strings.Join([]string{
		"# 注释行",
		"",
		"not-an-ip github.com",
		"1.2.3.4",
		"1.2.3.4              github.com # 12.3ms",
	}, "\n")

	got := ParseHosts(content)
	want := []HostsEntry{{Address: "1.2.3.4", Hostname: "github.com"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("垃圾行过滤不符 (-want +got):\n%s", diff)
	}
}

func TestRenderReport(t *testing.T) {
	restore := timeNow
	timeNow = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = restore }()

	report := RenderReport(testSnapshot())

	for _, want := range []string{
		"# GitHub Hosts 性能统计报告",
		"- **域名总数**: 3",
		"- **成功解析**: 2 (66.7%)",
		"| 1 | github.com | 1.2.3.4 | 12.30ms |",
		"- **优秀** (0-50ms): 2个 (100.0%)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("报告缺少 %q:\n%s", want, report)
		}
	}
	// 超时条目不参与性能统计
	if strings.Contains(report, "9.9.9.9") {
		t.Error("超时地址不应出现在性能统计里")
	}
}
