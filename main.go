package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"menu-api/api"
	"menu-api/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found")
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := openCatalog(ctx)

	var rc *redis.Client
	if conn := os.Getenv("REDIS_CONNECTION_STRING"); conn != "" {
		rc = redis.NewClient(redisOptions(conn))
	} else {
		log.Warn("REDIS_CONNECTION_STRING not set, catalog cache and order dedupe disabled")
	}

	store := storage.NewCache(base, rc, api.EnvDuration("CATALOG_CACHE_TTL", 5*time.Minute))

	var deduper api.Deduper
	if rc != nil {
		ttl := api.EnvDuration("DEDUPER_TTL", 24*time.Hour)
		if ttl == 0 {
			log.Fatal("invalid DEDUPER_TTL: must be greater than zero")
		}
		deduper = api.NewRedisDeduper(rc, ttl)
	}

	var publisher api.OrderPublisher
	if queueName := os.Getenv("ORDERS_QUEUE"); queueName != "" {
		connStr := os.Getenv("STORAGE_CONNECTION_STRING")
		if connStr == "" {
			log.Fatal("ORDERS_QUEUE requires STORAGE_CONNECTION_STRING")
		}
		q, err := storage.NewOrderQueue(connStr, queueName)
		if err != nil {
			log.Fatalf("orders queue: %v", err)
		}
		publisher = q
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding, "Idempotency-Key"},
	}))

	logger := log.New()
	logger.SetLevel(log.GetLevel())
	e.Use(api.RequestLogger(logger))
	server := api.Register(e, store, publisher, deduper, logger, api.OptionsFromEnv())

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("MENU_API_PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http shutdown: %v", err)
		}
	}()

	if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
	server.Shutdown()
	if rc != nil {
		_ = rc.Close()
	}
}

// openCatalog picks the Postgres catalog when DATABASE_URL is set and the
// Table Storage catalog otherwise.
func openCatalog(ctx context.Context) api.Catalog {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := storage.OpenPostgres(ctx, dsn, 5)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		pg := storage.NewPostgres(db)
		if err := pg.Migrate(); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return pg
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	businesses := os.Getenv("BUSINESSES_TABLE")
	products := os.Getenv("PRODUCTS_TABLE")
	if connStr == "" || businesses == "" || products == "" {
		log.Fatal("missing storage config")
	}
	tables, err := storage.NewTables(connStr, businesses, products)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	return tables
}

// redisOptions accepts either a redis:// URL or an Azure style
// "host:port,password=...,ssl=True" connection string.
func redisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
