package output

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"GitHub_Hosts_Go/pkg/model"
)

const (
	// ProgramName 输出文件头部使用的程序名
	ProgramName = "GitHub Hosts Ultimate"
	// Version 当前版本号
	Version = "3.0.0"

	// StartMarker / EndMarker 包住 hosts 片段的条目区
	StartMarker = "# ==================== GitHub Hosts Start ===================="
	EndMarker   = "# ==================== GitHub Hosts End ===================="
)

// RenderHosts 把快照渲染为 hosts 文件片段。
// 条目按目录原始顺序分域名排列，域名内按延迟升序；
// 多 IP 模式关闭时每个域名只保留最快的一行。
func RenderHosts(snap *model.Snapshot) string {
	lines := []string{
		"# " + ProgramName,
		fmt.Sprintf("# 生成时间: %s", snap.StartTime.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("# 版本: %s", Version),
		fmt.Sprintf("# 域名级别: %s", strings.ToUpper(snap.Level)),
		fmt.Sprintf("# 成功率: %d/%d (%.1f%%)", snap.Succeeded, snap.Attempted, snap.SuccessRate()),
		"#",
		StartMarker,
		"",
	}

	for _, domain := range snap.Domains {
		entries, ok := snap.Results[domain]
		if !ok {
			continue
		}
		if !snap.MultiIP && len(entries) > 1 {
			entries = entries[:1]
		}
		for _, entry := range entries {
			lines = append(lines, fmt.Sprintf("%-20s %-50s %s", entry.Address, domain, latencyNote(entry)))
		}
	}

	lines = append(lines, "", EndMarker, "")
	return strings.Join(lines, "\n")
}

func latencyNote(entry model.RankedEntry) string {
	if !entry.Reachable() {
		return "# timeout"
	}
	return fmt.Sprintf("# %.1fms", entry.Latency)
}

// HostsEntry 是从 hosts 片段解析回来的一行映射
type HostsEntry struct {
	Address  string
	Hostname string
}

// ParseHosts 从渲染出的片段中还原 (IP, 域名) 对，保持行序。
// 注释行、空行以及首列不是 IP 字面量的行被跳过。
func ParseHosts(content string) []HostsEntry {
	var entries []HostsEntry
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if net.ParseIP(fields[0]) == nil {
			continue
		}
		entries = append(entries, HostsEntry{Address: fields[0], Hostname: fields[1]})
	}
	return entries
}

// WriteHostsFile 把渲染好的片段写入文件
func WriteHostsFile(filePath string, content string) error {
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("无法写入 hosts 文件 '%s': %w", filePath, err)
	}
	return nil
}

// timeNow 供测试替换
var timeNow = time.Now
