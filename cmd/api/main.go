package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/acazau/gridpilot/internal/adapter/actor"
	"github.com/acazau/gridpilot/internal/adapter/store"
	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/actor"
	"github.com/acazau/gridpilot/internal/sched"
	"github.com/acazau/gridpilot/internal/server"
	"github.com/acazau/gridpilot/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)
	slog.Info("gridpilot", "version", versioninfo.Short())

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// restore payload store
	restoreStore, err := store.NewFileRestoreStore(cfg.DataDir)
	if err != nil {
		panic(err)
	}

	cache := adactor.NewStateCache()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, cache, func(cache *adactor.StateCache) *adactor.BridgeActor {
			return adactor.NewBridgeActor(cfg, cache, logger)
		}, restoreStore, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	// hourly strategy schedule
	scheduler := sched.NewScheduler(cfg, ctx, pid, cache, restoreStore, logger)
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()
	if err := scheduler.Start(schedCtx); err != nil {
		panic(fmt.Sprintf("scheduler error: %s", err))
	}
	defer scheduler.Stop()

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => GRIDPILOT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("GRIDPILOT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("gridpilot")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix host prefix
	hostPrefix, err := config.CheckMQTTTopic(cfg.MQTT.HostPrefix)
	if err != nil {
		return nil, errors.New("invalid host prefix. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HostPrefix = hostPrefix

	// check bounds
	if err := cfg.Entry.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.base_topic", "gridpilot")
	viper.SetDefault("mqtt.host_prefix", "homehost")
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("test_mode", false)
	viper.SetDefault("entry.id", "home")
	viper.SetDefault("entry.margin", 1.1)
	viper.SetDefault("entry.pv_efficiency", 100)
	viper.SetDefault("entry.tariff_end_hour", 13)
	viper.SetDefault("entry.battery.min_soc", 10)
	viper.SetDefault("entry.battery.max_soc", 100)
	viper.SetDefault("entry.battery.efficiency", 95)
	viper.SetDefault("entry.sensors.default_daily_load_kwh", 10)
	viper.SetDefault("entry.sell.high_price_threshold", 5.0)
	viper.SetDefault("entry.sell.arbitrage_min_price", 2.0)
	viper.SetDefault("entry.sell.export_work_mode", "Export First")
	viper.SetDefault("entry.sell.default_work_mode", "Zero Export To Load")
	viper.SetDefault("entry.sell.max_export_power_w", 5000)
	viper.SetDefault("entry.balancing.interval_days", 14)
	viper.SetDefault("entry.balancing.pv_threshold_kwh", 20.5)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
