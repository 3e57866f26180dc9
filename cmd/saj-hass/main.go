package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkaberg/saj-hass/internal/app"
	"github.com/jkaberg/saj-hass/internal/config"
	"github.com/jkaberg/saj-hass/internal/metrics"
	"github.com/jkaberg/saj-hass/internal/mqtt"
	"github.com/jkaberg/saj-hass/internal/saj"
	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/jkaberg/saj-hass/internal/transmission"
	"github.com/sirupsen/logrus"
)

// version is injected at build time via ldflags
var version = "dev"

func main() {
	cfg, once := parseFlags()

	logger := setupLogger(cfg.Verbose)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	mode, _ := cfg.ConnectivityMode()

	registry := sensors.NewRegistry(mode)
	registry.SetLogger(logger)
	reader := saj.NewReader(cfg.Host, mode, cfg.Username, cfg.Password, logger)

	// Single read path ------------------------------------------------------------
	if once {
		runOnce(reader, registry, logger)
		return
	}

	logFields := logrus.Fields{
		"version":   version,
		"host":      cfg.Host,
		"mode":      mode,
		"target":    reader.Target(),
		"device_id": cfg.DeviceID,
		"poll":      cfg.PollInterval,
	}
	if cfg.ForceUpdateInterval > 0 {
		logFields["force_update_int"] = cfg.ForceUpdateInterval
	}
	logger.WithFields(logFields).Info("Starting SAJ-HASS")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Transmitters ---------------------------------------------------------------
	var tx transmission.Transmitter
	if cfg.HasMQTT() {
		mqttClient, err := mqtt.NewClient(cfg.MQTTUrl, cfg.DeviceID, config.MQTTTimeout, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create MQTT client")
		}
		defer mqttClient.Disconnect(250)
		tx = transmission.NewMQTTTransmitter(mqttClient, cfg.DiscoveryPrefix, "SAJ "+mode.String(), logger)
		logger.Info("MQTT transmitter ready")
	} else {
		logger.Warn("No MQTT broker configured; data will only be logged")
	}

	// Metrics --------------------------------------------------------------------
	var obs app.Observer
	if cfg.HasMetrics() {
		collector := metrics.NewCollector(cfg.Host)
		obs = collector
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, metrics.NewRegistry(collector), logger); err != nil {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Run application ------------------------------------------------------------
	app.Run(ctx, cfg, reader, registry, tx, obs, logger)

	<-ctx.Done()
	logger.Info("SAJ-HASS stopped")
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

// parseFlags loads the config file and SAJ_HASS_* environment, then applies
// the flags that were set explicitly on the command line.
func parseFlags() (*config.Config, bool) {
	f := config.GetDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version and exit")
	once := flag.Bool("once", false, "Read the inverter once, print all sensors and exit")
	configPath := flag.String("config", getEnv("SAJ_HASS_CONFIG", ""), "Path to a YAML/JSON/TOML config file")

	flag.StringVar(&f.Host, "host", f.Host, "Inverter host or host:port")
	flag.StringVar(&f.Mode, "mode", f.Mode, "Connectivity: wired (ethernet) or wireless (WiFi module)")
	flag.StringVar(&f.Username, "username", f.Username, "WiFi module user (wireless only)")
	flag.StringVar(&f.Password, "password", f.Password, "WiFi module password (wireless only)")
	flag.DurationVar(&f.PollInterval, "poll-interval", f.PollInterval, "Inverter poll interval")
	flag.DurationVar(&f.ForceUpdateInterval, "force-update-interval", f.ForceUpdateInterval, "Republish unchanged values at this interval (0 = disabled)")
	flag.StringVar(&f.MQTTUrl, "mqtt-url", f.MQTTUrl, "MQTT URL")
	flag.StringVar(&f.DeviceID, "device-id", f.DeviceID, "Device identifier")
	flag.StringVar(&f.DiscoveryPrefix, "discovery-prefix", f.DiscoveryPrefix, "HA discovery prefix")
	flag.StringVar(&f.MetricsAddr, "metrics-addr", f.MetricsAddr, "Prometheus listen address, e.g. :9090 (empty = disabled)")
	flag.BoolVar(&f.Verbose, "verbose", f.Verbose, "Verbose logging")

	flag.Parse()

	if *showVersion {
		fmt.Printf("saj-hass %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "saj-hass: %v\n", err)
		os.Exit(2)
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "host":
			cfg.Host = f.Host
		case "mode":
			cfg.Mode = f.Mode
		case "username":
			cfg.Username = f.Username
		case "password":
			cfg.Password = f.Password
		case "poll-interval":
			cfg.PollInterval = f.PollInterval
		case "force-update-interval":
			cfg.ForceUpdateInterval = f.ForceUpdateInterval
		case "mqtt-url":
			cfg.MQTTUrl = f.MQTTUrl
		case "device-id":
			cfg.DeviceID = f.DeviceID
		case "discovery-prefix":
			cfg.DiscoveryPrefix = f.DiscoveryPrefix
		case "metrics-addr":
			cfg.MetricsAddr = f.MetricsAddr
		case "verbose":
			cfg.Verbose = f.Verbose
		}
	})

	return cfg, *once
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

func runOnce(reader *saj.Reader, registry *sensors.Registry, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*saj.ReadTimeout)
	defer cancel()

	snap, err := app.ReadOnce(ctx, reader, registry)
	if err != nil {
		logger.WithError(err).Fatal("Inverter read failed")
	}
	for _, s := range snap.Sensors {
		if !s.HasValue {
			continue
		}
		fmt.Printf("%-20s %10s %s\n", s.Name, s.Value, s.Unit)
	}
}
