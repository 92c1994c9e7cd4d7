package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/archive"
	"github.com/osprey-dcs/quartz-config-loader/internal/compiler"
	"github.com/osprey-dcs/quartz-config-loader/internal/config"
	"github.com/osprey-dcs/quartz-config-loader/internal/database"
	httpapi "github.com/osprey-dcs/quartz-config-loader/internal/http"
	"github.com/osprey-dcs/quartz-config-loader/internal/logger"
	"github.com/osprey-dcs/quartz-config-loader/internal/mqtt"
	"github.com/osprey-dcs/quartz-config-loader/internal/publisher"
	"github.com/osprey-dcs/quartz-config-loader/internal/repository"
	"github.com/osprey-dcs/quartz-config-loader/internal/service"
	"github.com/osprey-dcs/quartz-config-loader/internal/store"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志（带 LOG 变量尾部缓冲）
	tail := logger.NewTailBuffer(0)
	log, err := logger.NewLoggerWithTail(cfg.Log.Level, cfg.Log.Format, "quartz-config-server", tail)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting quartz-config-server",
		zap.String("prefix", cfg.PV.Prefix),
		zap.Strings("publishers", cfg.PV.Publishers),
		zap.Bool("sim", cfg.PV.Sim),
	)

	// 组装发布后端；sim 模式只编译校验，不对外发布
	var backends []publisher.Publisher
	var kv store.KV
	var redisClient *redis.Client
	var mqttClient *mqtt.Client
	if !cfg.PV.Sim {
		for _, name := range cfg.PV.Publishers {
			switch name {
			case "redis":
				redisClient = store.NewRedisClient(cfg)
				if err := store.Ping(context.Background(), redisClient); err != nil {
					log.Fatal("Failed to connect to redis", zap.Error(err))
				}
				kv = store.NewRedisKV(redisClient)
				backends = append(backends, publisher.NewRedis(redisClient, cfg.PV.LoadsStream, log))
			case "mqtt":
				c, err := mqtt.NewClient(&cfg.MQTT)
				if err != nil {
					log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
				}
				mqttClient = c
				backends = append(backends, publisher.NewMQTT(c, cfg.MQTT.QoS, log))
			case "gateway":
				if cfg.Gateway.URL == "" {
					log.Warn("gateway publisher enabled but GATEWAY_URL is empty, skipping")
					continue
				}
				timeout := time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second
				backends = append(backends, publisher.NewGateway(cfg.Gateway.URL, timeout, log))
			default:
				log.Warn("Unknown publisher backend, skipping", zap.String("backend", name))
			}
		}
	}
	if len(backends) == 0 {
		backends = append(backends, publisher.NewNop(log))
	}
	multi := publisher.NewMulti(backends...)

	// 加载历史（可选：DB 不可用时仅关闭历史，不影响加载）
	var db *sql.DB
	var repo repository.LoadsRepository
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			repo = repository.NewPostgresLoadsRepository(db)
			log.Info("Load history enabled")
		} else {
			log.Warn("DB enabled but connection failed, load history disabled", zap.Error(err))
		}
	}

	arch, err := archive.New(cfg.Archive.Dir)
	if err != nil {
		log.Fatal("Failed to open archive directory", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comp := compiler.New(cfg.PV.Prefix, log)
	svc := service.NewLoaderService(comp, multi, multi, arch, repo, tail, log)
	svc.RestoreFromHistory(ctx)

	router := httpapi.NewRouter(log)
	router.RegisterLoaderRoutes(httpapi.NewLoaderHandler(svc, repo, arch, log))
	router.RegisterVariableRoutes(httpapi.NewVariablesHandler(kv, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if db != nil {
		_ = db.Close()
	}

	log.Info("Service stopped")
}
