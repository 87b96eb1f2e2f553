package datasource

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// 域名级别，级别之间是包含关系：core ⊂ extended ⊂ full
const (
	LevelCore     = "core"
	LevelExtended = "extended"
	LevelFull     = "full"
)

// Catalogue 保存按级别分段的有序域名目录
type Catalogue struct {
	sections map[string][]string
}

// LoadCatalogue 从指定路径的文件中读取分级域名目录。
// 文件使用 "[core]" / "[extended]" / "[optional]" 行划分段落，
// 忽略空行和以 '#' 开头的注释行；段落标记之前的域名归入 core。
// 重复出现的域名只保留第一次出现的位置。
func LoadCatalogue(filePath string) (*Catalogue, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法打开域名文件 '%s': %w", filePath, err)
	}
	defer file.Close()

	cat := &Catalogue{sections: make(map[string][]string)}
	seen := make(map[string]struct{})
	section := "core"

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		cat.sections[section] = append(cat.sections[section], line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取域名文件时出错: %w", err)
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("域名文件 '%s' 为空或未包含有效域名", filePath)
	}

	return cat, nil
}

// Domains 按级别返回有序、无重复的域名序列
func (c *Catalogue) Domains(level string) []string {
	var out []string
	out = append(out, c.sections["core"]...)
	switch level {
	case LevelCore:
	case LevelExtended:
		out = append(out, c.sections["extended"]...)
	default: // full
		out = append(out, c.sections["extended"]...)
		out = append(out, c.sections["optional"]...)
	}
	return out
}
