package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"blogcomments/pkg/api"
	"blogcomments/pkg/storage"
	"blogcomments/pkg/storage/memdb"
	"blogcomments/pkg/storage/mongo"
)

type Config struct {
	ServiceName string `toml:"serviceName"`
	ListenAddr  string `toml:"listenAddr"`
	LogLevel    string `toml:"logLevel"`
	PageSize    int    `toml:"pageSize"`
	JWTSecret   string `toml:"jwtSecret"`

	KafkaBrokers []string `toml:"kafkaBrokers"`
	KafkaTopic   string   `toml:"kafkaTopic"`
}

func main() {
	var (
		configPath string
		logLevel   string
		dev        bool
	)

	flag.StringVar(&configPath, "config", "config.toml", "Path to TOML config file")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.BoolVar(&dev, "dev", false, "Run the server in development mode with in-memory DB.")
	flag.Parse()

	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Fatalf("[server] failed to load config file %s: %v", configPath, err)
	}

	// Override config with flags if set
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	var sdb storage.Storage

	switch dev {
	case false:
		conf, err := mongo.NewConfig()
		if err != nil {
			log.Fatalf("[server] invalid Mongo config: %v", err)
		}

		db, err := mongo.New(conf)
		if err != nil {
			log.Fatalf("[server] failed to initialize storage instance, DB connection not established: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.Ping(ctx); err != nil {
			cancel()
			log.Fatalf("[server] %v: %v", storage.ErrDBNotResponding, err)
		}
		cancel()
		log.Info("[server] connected to Mongo")
		sdb = db

	case true:
		log.Info("[server] running with in-memory DB")
		sdb = memdb.New()
	}

	var kWriter *kafka.Writer
	if len(cfg.KafkaBrokers) > 0 {
		kWriter = &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    cfg.KafkaTopic,
			Balancer: &kafka.LeastBytes{},
		}
		defer kWriter.Close()
	}

	commentsAPI := api.New(sdb, api.Config{
		ServiceName: cfg.ServiceName,
		PageSize:    cfg.PageSize,
		JWTSecret:   cfg.JWTSecret,
	}, kWriter)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: commentsAPI.Router(),
	}

	go func() {
		log.Infof("[server] starting on %v", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("[server] failed to start: %v", err)
			return
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}

	sdb.Close(shutdownCtx)
	log.Info("[server] disconnected from DB")
}
