package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/MatusOllah/slogcolor"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/listeners"

	"github.com/australsec/opswatch/pkg/blob"
	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/config"
	"github.com/australsec/opswatch/pkg/notify"
	"github.com/australsec/opswatch/pkg/routes"
	"github.com/australsec/opswatch/pkg/store"
	"github.com/australsec/opswatch/pkg/tracker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	slog.SetDefault(slog.New(slogcolor.NewHandler(os.Stderr, slogcolor.DefaultOptions)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DSN())
	if err != nil {
		slog.Error("unable to open database", "error", err)
		os.Exit(1)
	}
	if err := store.Migrate(db); err != nil {
		slog.Error("unable to run migrations", "error", err)
		os.Exit(1)
	}
	stores := store.NewStores(db)

	hub := notify.NewHub()
	channel := comms.NewChannel(stores.Messages, hub)

	feed := &tracker.DeviceFeed{}
	mqttServer := mqtt.New(nil)
	if err := mqttServer.AddHook(feed, &tracker.DeviceFeedOptions{Identities: stores.Identities}); err != nil {
		slog.Error("unable to add broker hook", "error", err)
		os.Exit(1)
	}
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: cfg.Mqtt.ListenAddr})
	if err := mqttServer.AddListener(tcp); err != nil {
		slog.Error("unable to add broker listener", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := mqttServer.Serve(); err != nil {
			slog.Error("broker stopped", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("device broker listening", "address", cfg.Mqtt.ListenAddr)

	var uploader *blob.Uploader
	if cfg.Blob.Bucket != "" {
		uploader, err = blob.NewUploader(context.Background(), cfg.Blob.Bucket)
		if err != nil {
			slog.Error("unable to open blob storage", "error", err)
			os.Exit(1)
		}
		defer uploader.Close()
	} else {
		slog.Warn("no blob bucket configured, photo uploads disabled")
	}

	router := &routes.WebRouter{
		Hub:        hub,
		Channel:    channel,
		DeviceFeed: feed,
		Uploader:   uploader,
	}
	slog.Info("console listening", "address", cfg.ListenAddr)
	if err := router.Initialize(*cfg, stores); err != nil {
		slog.Error("web server stopped", "error", err)
		os.Exit(1)
	}
}
