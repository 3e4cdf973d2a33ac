package main

import (
	"flag"
	"hash/fnv"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"PRelay/global"
	"PRelay/logger"
	"PRelay/middleware"
	"PRelay/service/backend"
	"PRelay/service/natsx"
	"PRelay/service/relay"
	"PRelay/service/storage"
)

func main() {
	cfgPath := flag.String("config", "relay.yaml", "path to config file")
	flag.Parse()

	cfg, err := global.Load(*cfgPath)
	if err != nil {
		logger.Errorf("[main] config load failed: %v", err)
		os.Exit(1)
	}

	// seed connection IDs with a node-derived component
	h := fnv.New32a()
	_, _ = h.Write([]byte(cfg.NodeID))
	global.ConfigIds(int64(h.Sum32() % 1024))

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	srv := relay.NewServer(client, cfg.NodeID, cfg.SendQueueSize)

	if cfg.Redis.Addr != "" {
		mirror, err := storage.NewPresenceMirror(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.NodeID, cfg.Redis.TTL)
		if err != nil {
			logger.Warnf("[main] presence mirror disabled: %v", err)
		} else {
			srv.AttachMirror(mirror)
			defer mirror.Close()
			logger.Infof("[main] presence mirror on %s", cfg.Redis.Addr)
		}
	}

	if cfg.Nats.URL != "" {
		bridge, err := natsx.NewBridge(cfg.Nats.URL, cfg.Nats.Subject, cfg.NodeID)
		if err != nil {
			logger.Warnf("[main] fanout bridge disabled: %v", err)
		} else if err := srv.AttachBridge(bridge); err != nil {
			logger.Warnf("[main] fanout bridge start failed: %v", err)
			bridge.Close()
		} else {
			defer bridge.Close()
			logger.Infof("[main] fanout bridge on %s subject=%s", cfg.Nats.URL, cfg.Nats.Subject)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog())
	r.GET("/ws", srv.HandleWS)

	go func() {
		logger.Infof("[main] relay %s listening on %s (backend %s)", cfg.NodeID, cfg.Listen, cfg.Backend.BaseURL)
		if err := r.Run(cfg.Listen); err != nil {
			logger.Errorf("[main] http server exited: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("[main] shutting down")
}
