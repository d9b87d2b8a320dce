package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/rmitbot/robot-gateway/api"
	"github.com/rmitbot/robot-gateway/auth"
	"github.com/rmitbot/robot-gateway/command"
	"github.com/rmitbot/robot-gateway/config"
	"github.com/rmitbot/robot-gateway/relay"
	"github.com/rmitbot/robot-gateway/rosbridge"
	"github.com/rmitbot/robot-gateway/server"
	"github.com/rmitbot/robot-gateway/session"
	"github.com/rmitbot/robot-gateway/store"
	"github.com/rmitbot/robot-gateway/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	cfg.ApplyLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional warm cache for relayed sensor payloads.
	var lastValues store.LastValueStore
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			logrus.WithError(err).Warn("last-value store unavailable, continuing without it")
		} else {
			lastValues = rs
			defer rs.Close()
		}
	}

	bridge := rosbridge.New(rosbridge.Config{
		URI:                  cfg.ROSBridgeURI,
		Enabled:              cfg.ROSBridgeEnabled,
		ConnectTimeout:       cfg.ConnectTimeout,
		ReconnectDelay:       cfg.ReconnectDelay,
		ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
	})

	gateway := command.NewGateway(bridge, cfg.CmdVelTopic)
	speed := command.NewSpeedController()

	relays := map[string]*relay.Relay{}
	scanRelay := relay.New(relay.Config{
		Topic:            cfg.ScanTopic,
		MsgType:          "sensor_msgs/msg/LaserScan",
		Kind:             "laser_scan",
		ReadyInterval:    cfg.RelayReadyInterval,
		ReadyMaxAttempts: cfg.RelayReadyMaxAttempts,
	}, bridge, lastValues)
	relays["laser_scan"] = scanRelay

	var mapRelay *relay.Relay
	if cfg.MapRelayEnabled {
		mapRelay = relay.New(relay.Config{
			Topic:            cfg.MapTopic,
			MsgType:          "nav_msgs/msg/OccupancyGrid",
			Kind:             "map",
			ReadyInterval:    cfg.RelayReadyInterval,
			ReadyMaxAttempts: cfg.RelayReadyMaxAttempts,
		}, bridge, lastValues)
		relays["map"] = mapRelay
	}

	// After every (re)connect: re-advertise the velocity topic and re-issue
	// the relay subscriptions. The bridge itself never replays them.
	bridge.SetOnConnect(func() {
		if err := gateway.Advertise(); err != nil {
			logrus.WithError(err).Warn("failed to advertise velocity topic")
		}
		if err := scanRelay.Resubscribe(); err != nil {
			logrus.WithError(err).Warn("failed to resubscribe scan relay")
		}
		if mapRelay != nil {
			if err := mapRelay.Resubscribe(); err != nil {
				logrus.WithError(err).Warn("failed to resubscribe map relay")
			}
		}
	})

	if cfg.ROSBridgeEnabled {
		if err := bridge.Connect(ctx); err != nil {
			logrus.WithError(err).Warn("initial rosbridge connect failed, retrying in background")
		}
		go scanRelay.Start(ctx)
		if mapRelay != nil {
			go mapRelay.Start(ctx)
		}
	} else {
		logrus.Info("rosbridge is disabled in configuration")
	}

	var verifier *auth.Verifier
	if cfg.AuthSecret != "" {
		verifier = auth.NewVerifier(cfg.AuthSecret)
	}

	registry := session.NewRegistry()
	wsHandler := websocket.NewHandler(registry, gateway, speed, bridge, relays, verifier)
	restAPI := api.New(gateway, speed, bridge, relays, scanRelay)

	srv := server.New(cfg.ListenAddr, restAPI.Routes(wsHandler.HandleWebSocket))
	go srv.Start()
	logrus.WithField("addr", cfg.ListenAddr).Info("robot gateway started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logrus.Info("shutdown signal received")
	cancel()

	srv.Shutdown(context.Background(), wsHandler, registry)

	if bridge.IsConnected() {
		if err := gateway.Unadvertise(); err != nil {
			logrus.WithError(err).Debug("unadvertise failed during shutdown")
		}
	}
	if err := bridge.Close(); err != nil {
		logrus.WithError(err).Warn("error closing rosbridge connection")
	}
	logrus.Info("shutdown complete")
}
