package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nizhen/weeklog/internal/eventbus"
	"github.com/nizhen/weeklog/internal/httpapi"
	"github.com/nizhen/weeklog/internal/pkg/buildinfo"
	"github.com/nizhen/weeklog/internal/pkg/config"
	"github.com/nizhen/weeklog/internal/repository"
	"github.com/nizhen/weeklog/internal/schema"
	"github.com/nizhen/weeklog/internal/service"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "配置文件路径，留空则按默认路径查找")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 首次启动写出起始配置文件，便于用户直接编辑
	if cfgPath == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
				_ = config.WriteFile(p, config.Default())
			}
			cfgPath = p
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}
	config.SetupLogger(cfg.App.LogLevel)

	slog.Info("weeklog 启动中...",
		"version", buildinfo.Version, "commit", buildinfo.Commit)

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("初始化数据库失败", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if db.SafeMode {
		slog.Warn("数据库处于安全模式，写操作可能失败", "migration_error", db.MigrationError)
	}

	hub := eventbus.NewHub()

	snippetRepo := repository.NewEntryRepository(db.DB, schema.TableSnippets)
	goalRepo := repository.NewEntryRepository(db.DB, schema.TableGoals)
	reflectionRepo := repository.NewEntryRepository(db.DB, schema.TableReflections)
	scoreRepo := repository.NewScoreRepository(db.DB)

	// 功能开关持有在原子指针里，配置热重载只替换指针，请求侧无锁读取
	var flags atomic.Pointer[service.FeatureFlags]
	flags.Store(featureFlags(cfg))
	flagsFn := func() service.FeatureFlags { return *flags.Load() }

	deps := httpapi.Deps{
		Cfg:      cfg,
		Hub:      hub,
		Snippets: service.NewEntryService(snippetRepo, hub, "snippets"),
		Goals:    service.NewEntryService(goalRepo, hub, "goals"),
		Reflects: service.NewEntryService(reflectionRepo, hub, "reflections"),
		Scores:   service.NewScoreService(scoreRepo, hub, time.Now),
		Views: service.NewViewService(
			snippetRepo, goalRepo, reflectionRepo, scoreRepo, flagsFn, time.Now),
		Endeavors: service.NewEndeavorService(
			snippetRepo, goalRepo, reflectionRepo, scoreRepo, hub),
		Flags: flagsFn,
		Now:   time.Now,
	}

	// 配置热重载：只有功能开关会生效，其余字段仍以启动时的值为准
	if cfgPath != "" {
		err := config.Watch(ctx, cfgPath, func(next *config.Config) {
			flags.Store(featureFlags(next))
			hub.Publish(eventbus.Event{Type: eventbus.TypeFeatureReloaded})
		})
		if err != nil {
			slog.Warn("配置热重载不可用", "error", err)
		}
	}

	server, err := httpapi.Start(ctx, deps, httpapi.Options{ListenAddr: cfg.Server.ListenAddr})
	if err != nil {
		slog.Error("启动 HTTP 服务失败", "error", err)
		os.Exit(1)
	}
	slog.Info("weeklog 已启动", "url", server.BaseURL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("正在关闭...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	shutdownCancel()

	slog.Info("weeklog 已退出")
}

func featureFlags(cfg *config.Config) *service.FeatureFlags {
	return &service.FeatureFlags{
		Goals:       cfg.Features.Goals,
		Reflections: cfg.Features.Reflections,
		DailyScores: cfg.Features.DailyScores,
	}
}
