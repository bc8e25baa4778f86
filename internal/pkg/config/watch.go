package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce 编辑器保存往往触发连续多个事件，合并后只重载一次
const watchDebounce = 500 * time.Millisecond

// Watch 监听配置文件变更，每次变更重新加载并回调。
// 只有功能开关这类可热更的字段应该在回调里生效，
// 监听地址与存储路径等字段重载后仍以进程启动时的值为准。
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}

	// 监听目录而不是文件本身：很多编辑器用重命名替换的方式保存，
	// 直接监听文件会在第一次保存后失效
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("监听配置目录失败: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					cfg, err := Load(path)
					if err != nil {
						slog.Warn("配置热重载失败，沿用旧配置", "error", err)
						return
					}
					slog.Info("配置已热重载",
						"goals", cfg.Features.Goals,
						"reflections", cfg.Features.Reflections,
						"daily_scores", cfg.Features.DailyScores)
					onReload(cfg)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("配置监听错误", "error", err)
			}
		}
	}()

	return nil
}
