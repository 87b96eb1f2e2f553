package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"GitHub_Hosts_Go/internal/cache"
	"GitHub_Hosts_Go/internal/config"
	"GitHub_Hosts_Go/internal/daemon"
	"GitHub_Hosts_Go/internal/datasource"
	"GitHub_Hosts_Go/internal/engine"
	"GitHub_Hosts_Go/internal/hostsfile"
	"GitHub_Hosts_Go/internal/output"
	"GitHub_Hosts_Go/internal/server"
	"GitHub_Hosts_Go/internal/state"
	"GitHub_Hosts_Go/pkg/model"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/sirupsen/logrus"
)

//go:embed default_config.yaml
var defaultConfigData []byte

//go:embed github_domains.txt
var defaultDomainsData []byte

var (
	level     = kingpin.Flag("level", "域名级别 (core|extended|full)").Default(datasource.LevelExtended).Enum(datasource.LevelCore, datasource.LevelExtended, datasource.LevelFull)
	outFile   = kingpin.Flag("output", "输出文件路径（默认取配置文件中的 output_file）").Default("").String()
	topN      = kingpin.Flag("top", "每个域名保留的最快 IP 数（默认取配置文件中的 top_ip_count）").Default("0").Int()
	noDoH     = kingpin.Flag("no-doh", "禁用 DoH 查询").Bool()
	noCache   = kingpin.Flag("no-cache", "禁用测速缓存").Bool()
	noWeb     = kingpin.Flag("no-web", "禁用 Web 爬虫降级").Bool()
	noMultiIP = kingpin.Flag("no-multi-ip", "每个域名只输出最快的一条").Bool()
	report    = kingpin.Flag("report", "生成 Markdown 统计报告").Bool()
	install   = kingpin.Flag("install", "生成后安装到系统 hosts 文件").Bool()
	uninstall = kingpin.Flag("uninstall", "从系统 hosts 文件移除已安装的区块").Bool()
	daemonize = kingpin.Flag("daemon", "Daemon 模式（持续运行并提供 HTTP 服务）").Bool()
	interval  = kingpin.Flag("interval", "Daemon 更新间隔秒数（默认取配置文件）").Default("0").Int()
	httpPort  = kingpin.Flag("port", "HTTP 服务端口（默认取配置文件）").Default("0").Int()
	logLevel  = kingpin.Flag("log.level", "日志级别 (debug|info|warn|error)").Default("info").String()
)

// ensureFile 检查文件是否存在于可执行文件目录，不存在时用内置默认数据创建
func ensureFile(fileName string, defaultData []byte) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("无法获取可执行文件路径: %w", err)
	}
	filePath := filepath.Join(filepath.Dir(exePath), fileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, defaultData, 0644); err != nil {
			return "", fmt.Errorf("无法写入默认文件 %s: %w", fileName, err)
		}
		log.Infof("首次运行，已生成默认 %s", filePath)
	} else if err != nil {
		return "", fmt.Errorf("检查文件 %s 时出错: %w", fileName, err)
	}
	return filePath, nil
}

func setLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("非法日志级别 '%s'，使用 info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func main() {
	kingpin.Version(output.Version)
	kingpin.Parse()
	setLogLevel(*logLevel)

	if *uninstall {
		if err := hostsfile.Uninstall(); err != nil {
			log.Fatalf("卸载失败: %v", err)
		}
		hostsfile.FlushDNS()
		return
	}

	cfgPath, err := ensureFile("config.yaml", defaultConfigData)
	if err != nil {
		log.Fatalf("初始化配置文件失败: %v", err)
	}
	domainsPath, err := ensureFile("github_domains.txt", defaultDomainsData)
	if err != nil {
		log.Fatalf("初始化域名文件失败: %v", err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 命令行参数覆盖配置文件
	if *topN > 0 {
		cfg.TopIPCount = *topN
	}
	if *interval > 0 {
		cfg.DaemonInterval = *interval
	}
	if *httpPort > 0 {
		cfg.HTTPPort = *httpPort
	}
	if *outFile != "" {
		cfg.OutputFile = *outFile
	}

	opts := engine.Options{
		Level:    *level,
		UseDoH:   !*noDoH,
		UseCache: !*noCache && cfg.CacheEnabled,
		UseWeb:   !*noWeb,
		MultiIP:  !*noMultiIP,
		TopN:     cfg.TopIPCount,
	}
	ca := cache.New(cfg.CacheFile, opts.UseCache)
	st := state.New()

	// 同一进程内（定时循环和 WebSocket 触发）串行执行批次
	var runMu sync.Mutex
	runBatch := func(progress func(string)) *model.Snapshot {
		runMu.Lock()
		defer runMu.Unlock()

		cat, err := datasource.LoadCatalogue(domainsPath)
		if err != nil {
			log.Errorf("加载域名列表失败: %v", err)
			return nil
		}
		snap := engine.New(cfg, opts, ca, progress).RunBatch(cat.Domains(*level))
		st.Publish(snap)
		return snap
	}

	runOnce := func() error {
		snap := runBatch(nil)
		if snap == nil {
			return fmt.Errorf("批次未能执行")
		}

		content := output.RenderHosts(snap)
		if err := output.WriteHostsFile(cfg.OutputFile, content); err != nil {
			return err
		}
		log.Infof("Hosts文件已生成: %s", cfg.OutputFile)
		log.Infof("成功率: %d/%d (%.1f%%)，耗时 %.2f秒",
			snap.Succeeded, snap.Attempted, snap.SuccessRate(), snap.Elapsed.Seconds())

		if *report {
			reportFile := "stats_report.md"
			if err := output.WriteReportFile(reportFile, snap); err != nil {
				log.Errorf("生成统计报告失败: %v", err)
			} else {
				log.Infof("统计报告已生成: %s", reportFile)
			}
		}
		if *install {
			if err := hostsfile.Install(content); err != nil {
				return fmt.Errorf("安装到系统 hosts 失败: %w", err)
			}
			hostsfile.FlushDNS()
		}
		return nil
	}

	if *daemonize {
		srv := server.New(st, runBatch)
		go func() {
			if err := srv.Start(cfg.HTTPPort); err != nil {
				log.Fatalf("HTTP服务器启动失败: %v", err)
			}
		}()

		stop := make(chan struct{})
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			close(stop)
		}()

		d := &daemon.Daemon{
			Interval:  time.Duration(cfg.DaemonInterval) * time.Second,
			RunOnce:   runOnce,
			WatchPath: domainsPath,
		}
		d.Run(stop)
		return
	}

	if err := runOnce(); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}
