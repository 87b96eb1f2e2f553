package hostsfile

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// 区块标记，用于在系统 hosts 文件中识别并整体替换我们生成的片段
const (
	BeginMarker = "# BEGIN FAST-GITHUB-HOSTS"
	EndMarker   = "# END FAST-GITHUB-HOSTS"
)

// Path 返回当前操作系统的 hosts 文件路径
func Path() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return `C:\Windows\System32\drivers\etc\hosts`, nil
	case "linux", "darwin":
		return "/etc/hosts", nil
	default:
		return "", fmt.Errorf("不支持的操作系统: %s", runtime.GOOS)
	}
}

// Install 把片段安装到系统 hosts 文件（先备份，再替换旧区块）
func Install(fragment string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return InstallTo(path, fragment)
}

// InstallTo 把片段安装到指定 hosts 文件。
// 原有的 FAST-GITHUB-HOSTS 区块会被移除，新区块追加到文件末尾。
func InstallTo(path, fragment string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("无法读取 hosts 文件 '%s': %w", path, err)
	}

	if backupPath, err := backup(path, content); err != nil {
		log.Warnf("备份 hosts 文件失败: %v", err)
	} else {
		log.Infof("已备份原 hosts 文件: %s", backupPath)
	}

	kept := RemoveBlock(string(content))
	var b strings.Builder
	b.WriteString(strings.TrimRight(kept, "\n"))
	b.WriteString("\n\n")
	b.WriteString(BeginMarker)
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(fragment, "\n"))
	b.WriteString("\n")
	b.WriteString(EndMarker)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("无法写入 hosts 文件 '%s': %w", path, err)
	}
	log.Infof("已更新 hosts 文件: %s", path)
	return nil
}

// Uninstall 从系统 hosts 文件中移除我们的区块
func Uninstall() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return UninstallFrom(path)
}

// UninstallFrom 从指定 hosts 文件中移除我们的区块
func UninstallFrom(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("无法读取 hosts 文件 '%s': %w", path, err)
	}

	kept := RemoveBlock(string(content))
	if kept == string(content) {
		log.Info("hosts 文件中没有找到已安装的区块")
		return nil
	}

	if err := os.WriteFile(path, []byte(kept), 0644); err != nil {
		return fmt.Errorf("无法写入 hosts 文件 '%s': %w", path, err)
	}
	log.Infof("已从 %s 移除 GitHub Hosts 区块", path)
	return nil
}

// RemoveBlock 返回去掉 BEGIN/END 区块之后的内容，其余行原样保留
func RemoveBlock(content string) string {
	lines := strings.Split(content, "\n")
	var kept []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == BeginMarker {
			inBlock = true
			continue
		}
		if trimmed == EndMarker {
			inBlock = false
			continue
		}
		if !inBlock {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func backup(path string, content []byte) (string, error) {
	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", err
	}
	return backupPath, nil
}

// FlushDNS 尽力刷新系统 DNS 缓存，失败只记录日志
func FlushDNS() {
	var commands [][]string
	switch runtime.GOOS {
	case "windows":
		commands = [][]string{{"ipconfig", "/flushdns"}}
	case "linux":
		commands = [][]string{
			{"systemctl", "restart", "systemd-resolved"},
			{"systemctl", "restart", "nscd"},
			{"service", "nscd", "restart"},
		}
	case "darwin":
		commands = [][]string{
			{"dscacheutil", "-flushcache"},
			{"killall", "-HUP", "mDNSResponder"},
		}
	}

	for _, cmd := range commands {
		if err := exec.Command(cmd[0], cmd[1:]...).Run(); err == nil {
			log.Info("已刷新 DNS 缓存")
			return
		}
	}
	log.Debug("刷新 DNS 缓存失败（可忽略）")
}
