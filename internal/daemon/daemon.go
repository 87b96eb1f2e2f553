package daemon

import (
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/fsnotify.v1"
)

// Daemon 按固定间隔重复触发一次完整的批量运行。
// 同一时刻至多一个批次在执行；正在执行的批次不会被打断。
type Daemon struct {
	Interval  time.Duration
	RunOnce   func() error
	WatchPath string // 域名目录文件；被修改时立即触发一次运行，空则不监听
}

// failureBackoff 批次失败后的等待时间
const failureBackoff = time.Minute

// Run 阻塞运行守护循环，直到 stop 被关闭。
// 当前批次执行完毕后才会检查 stop，不会中途打断在途测速。
func (d *Daemon) Run(stop <-chan struct{}) {
	log.Infof("Daemon模式启动，更新间隔: %s", d.Interval)

	reload := make(chan struct{}, 1)
	if d.WatchPath != "" {
		if watcher, err := fsnotify.NewWatcher(); err != nil {
			log.Warnf("创建文件监听失败: %v", err)
		} else {
			defer watcher.Close()
			if err := watcher.Add(d.WatchPath); err != nil {
				log.Warnf("监听域名文件失败: %v", err)
			} else {
				go d.watch(watcher, reload, stop)
			}
		}
	}

	for {
		log.Info("开始更新hosts...")
		wait := d.Interval
		if err := d.RunOnce(); err != nil {
			log.Errorf("Daemon更新失败: %v", err)
			wait = failureBackoff
		} else {
			log.Infof("更新完成，下次更新时间: %s后", wait)
		}

		select {
		case <-stop:
			log.Info("收到停止信号，正在退出...")
			return
		case <-reload:
			log.Info("域名目录已变更，立即重新运行")
		case <-time.After(wait):
		}
	}
}

func (d *Daemon) watch(watcher *fsnotify.Watcher, reload chan<- struct{}, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case reload <- struct{}{}:
			default: // 已有待处理的重载信号
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debugf("文件监听错误: %v", err)
		}
	}
}
