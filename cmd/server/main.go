package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/geospatial-oss/geoindex/pkg/api/rest"
	"github.com/geospatial-oss/geoindex/pkg/api/rest/middleware"
	"github.com/geospatial-oss/geoindex/pkg/config"
	"github.com/geospatial-oss/geoindex/pkg/observability"
	"github.com/geospatial-oss/geoindex/pkg/registry"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("geoindex server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Log.Level), os.Stdout)
	metrics := observability.NewMetrics()
	reg := registry.New()
	cacheCapacity := cfg.Cache.Capacity
	if !cfg.Cache.Enabled {
		cacheCapacity = 0 // a zero-capacity cache evicts every entry on Put
	}
	cache := rest.NewQueryCache(cacheCapacity, cfg.Cache.TTL)

	restConfig := rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Auth.Enabled,
			JWTSecret:   cfg.Auth.JWTSecret,
			PublicPaths: []string{"/v1/health"},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			RequestsPerSec: cfg.RateLimit.RequestsPerSec,
			Burst:          cfg.RateLimit.Burst,
			PerIP:          true,
		},
	}

	server := rest.NewServer(restConfig, reg, cache, metrics, logger)

	printStartupInfo(cfg)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Info("server ready, press ctrl+c to stop")
	select {
	case sig := <-sigChan:
		logger.Info("received signal", map[string]interface{}{"signal": sig.String()})
	case err := <-errChan:
		logger.Error("server error", map[string]interface{}{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("error stopping server", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("server stopped")
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║    ____ _____ ___  ___ _   _ ____  _______  __            ║
║   / ___| ____/ _ \|_ _| \ | |  _ \| ____\ \/ /            ║
║  | |  _|  _|| | | || ||  \| | | | |  _|  \  /             ║
║  | |_| | |__| |_| || || |\  | |_| | |___ /  \             ║
║   \____|_____\___/|___|_| \_|____/|_____/_/\_\            ║
║                                                           ║
║   True k-NN spatial index and join engine                ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║            REST API Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ Log Level:        %-35s ║\n", cfg.Log.Level)
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.Auth.Enabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.RateLimit.Enabled)
	if cfg.RateLimit.Enabled {
		fmt.Printf("║ Rate:             %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst))
	}
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║            Build Configuration                         ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Leaf Capacity:    %-35d ║\n", cfg.Build.LeafCapacity)
	fmt.Printf("║ Max Fanout:       %-35d ║\n", cfg.Build.MaxFanout)
	fmt.Printf("║ Min Fanout:       %-35d ║\n", cfg.Build.MinFanout)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║            Cache Configuration                         ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Enabled:          %-35v ║\n", cfg.Cache.Enabled)
	fmt.Printf("║ Capacity:         %-35d ║\n", cfg.Cache.Capacity)
	fmt.Printf("║ TTL:              %-35s ║\n", cfg.Cache.TTL)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("geoindex server - true-kNN spatial index and join engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  geoindex-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEOINDEX_HOST                Server host")
	fmt.Println("  GEOINDEX_PORT                Server port")
	fmt.Println("  GEOINDEX_LEAF_CAPACITY       BVH leaf capacity")
	fmt.Println("  GEOINDEX_MAX_FANOUT          BVH max fanout")
	fmt.Println("  GEOINDEX_MIN_FANOUT          BVH min fanout")
	fmt.Println("  GEOINDEX_ENCLOSURE_KIND      rect or sphere")
	fmt.Println("  GEOINDEX_RNG_SEED            deterministic build seed")
	fmt.Println("  GEOINDEX_CACHE_ENABLED       Enable query cache (true/false)")
	fmt.Println("  GEOINDEX_CACHE_CAPACITY      Cache capacity")
	fmt.Println("  GEOINDEX_CACHE_TTL           Cache TTL (e.g., 5m)")
	fmt.Println("  GEOINDEX_AUTH_ENABLED        Enable JWT auth (true/false)")
	fmt.Println("  GEOINDEX_JWT_SECRET          JWT signing secret")
	fmt.Println("  GEOINDEX_RATE_LIMIT_ENABLED  Enable rate limiting (true/false)")
	fmt.Println("  GEOINDEX_LOG_LEVEL           debug, info, warn, error, or fatal")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  geoindex-server")
	fmt.Println("  geoindex-server -port 9090")
	fmt.Println("  GEOINDEX_PORT=9090 geoindex-server")
	fmt.Println()
}
