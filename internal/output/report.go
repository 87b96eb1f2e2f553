package output

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"GitHub_Hosts_Go/pkg/model"
)

// reportRow 是报告里的一条有效测量
type reportRow struct {
	domain  string
	address string
	latency float64
}

// RenderReport 把快照渲染为 Markdown 格式的性能统计报告
func RenderReport(snap *model.Snapshot) string {
	var rows []reportRow
	for domain, entries := range snap.Results {
		for _, entry := range entries {
			if entry.Reachable() {
				rows = append(rows, reportRow{domain, entry.Address, entry.Latency})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].latency != rows[j].latency {
			return rows[i].latency < rows[j].latency
		}
		return rows[i].domain < rows[j].domain
	})

	lines := []string{
		"# GitHub Hosts 性能统计报告",
		"",
		fmt.Sprintf("**生成时间**: %s", timeNow().Format("2006-01-02 15:04:05")),
		"",
		"## 总体统计",
		"",
		fmt.Sprintf("- **域名总数**: %d", snap.Attempted),
		fmt.Sprintf("- **成功解析**: %d (%.1f%%)", snap.Succeeded, snap.SuccessRate()),
		fmt.Sprintf("- **总耗时**: %.2f秒", snap.Elapsed.Seconds()),
		fmt.Sprintf("- **域名级别**: %s", strings.ToUpper(snap.Level)),
		"",
		"## 性能分析",
		"",
	}

	if len(rows) > 0 {
		var total float64
		for _, row := range rows {
			total += row.latency
		}
		lines = append(lines,
			fmt.Sprintf("- **平均延迟**: %.2fms", total/float64(len(rows))),
			fmt.Sprintf("- **最低延迟**: %.2fms (%s)", rows[0].latency, rows[0].domain),
			fmt.Sprintf("- **最高延迟**: %.2fms (%s)", rows[len(rows)-1].latency, rows[len(rows)-1].domain),
			"",
		)

		lines = append(lines, "## Top 10 最快域名", "", "| 排名 | 域名 | IP | 延迟 |", "|------|------|-----|------|")
		for i, row := range topRows(rows, 10) {
			lines = append(lines, fmt.Sprintf("| %d | %s | %s | %.2fms |", i+1, row.domain, row.address, row.latency))
		}

		lines = append(lines, "", "## Top 10 最慢域名", "", "| 排名 | 域名 | IP | 延迟 |", "|------|------|-----|------|")
		slow := bottomRows(rows, 10)
		for i, row := range slow {
			lines = append(lines, fmt.Sprintf("| %d | %s | %s | %.2fms |", i+1, row.domain, row.address, row.latency))
		}
	}

	lines = append(lines, "", "## 延迟分布", "")
	if len(rows) > 0 {
		buckets := []struct {
			min, max  float64
			label     string
			rangeDesc string
		}{
			{0, 50, "优秀", "0-50ms"},
			{50, 100, "良好", "50-100ms"},
			{100, 200, "一般", "100-200ms"},
			{200, model.Unreachable, "较慢", "200ms+"},
		}
		for _, b := range buckets {
			count := 0
			for _, row := range rows {
				if row.latency >= b.min && row.latency < b.max {
					count++
				}
			}
			pct := float64(count) / float64(len(rows)) * 100
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %d个 (%.1f%%)", b.label, b.rangeDesc, count, pct))
		}
	}

	lines = append(lines, "", "---", "", fmt.Sprintf("*报告由 %s v%s 生成*", ProgramName, Version))
	return strings.Join(lines, "\n")
}

// WriteReportFile 渲染统计报告并写入文件
func WriteReportFile(filePath string, snap *model.Snapshot) error {
	if err := os.WriteFile(filePath, []byte(RenderReport(snap)), 0644); err != nil {
		return fmt.Errorf("无法写入报告文件 '%s': %w", filePath, err)
	}
	return nil
}

func topRows(rows []reportRow, n int) []reportRow {
	if len(rows) < n {
		n = len(rows)
	}
	return rows[:n]
}

// bottomRows 返回最慢的 n 条，最慢的排在前面
func bottomRows(rows []reportRow, n int) []reportRow {
	if len(rows) < n {
		n = len(rows)
	}
	out := make([]reportRow, 0, n)
	for i := len(rows) - 1; i >= len(rows)-n; i-- {
		out = append(out, rows[i])
	}
	return out
}
