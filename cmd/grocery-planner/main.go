package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"grocery-planner/internal/app"
	"grocery-planner/internal/config"
	"grocery-planner/internal/logger"
)

func main() {
	// A missing .env file is fine; real environment variables win either way.
	_ = godotenv.Load()

	log := logger.New(os.Getenv("APP_ENV"))

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration", err)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", err)
	}
	defer application.Close()

	cmd := "serve"
	args := []string{}
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "serve":
		serve(ctx, application, log)
	case "export":
		exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
		email := exportCmd.String("email", "", "User whose list to export")
		historyKey := exportCmd.String("history", "", "History key to export instead of the live selection")
		exportCmd.Parse(args)
		if *email == "" {
			exportCmd.Usage()
			os.Exit(1)
		}

		text, err := application.ExportSelection(ctx, *email, *historyKey)
		if err != nil {
			log.Fatal("Export failed", err)
		}
		fmt.Print(text)
	case "migrate-store":
		n, err := application.MigrateStore(ctx)
		if err != nil {
			log.Fatal("Store migration failed", err)
		}
		fmt.Printf("Successfully migrated %d users to %s.\n", n, cfg.DatabasePath)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		affected, err := application.CleanupMetrics(ctx, *days)
		if err != nil {
			log.Fatal("Cleanup failed", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	case "metrics-usage":
		usageCmd := flag.NewFlagSet("metrics-usage", flag.ExitOnError)
		days := usageCmd.Int("days", 7, "Report the last N days")
		usageCmd.Parse(args)

		usage, err := application.Usage(ctx, *days)
		if err != nil {
			log.Fatal("Failed to read usage", err)
		}
		fmt.Printf("%-12s %8s %6s %10s\n", "DAY", "ACTIONS", "USERS", "AVG MS")
		for _, u := range usage {
			fmt.Printf("%-12s %8d %6d %10.1f\n", u.Date, u.TotalActions, u.ActiveUsers, u.AvgLatencyMS)
		}
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func serve(ctx context.Context, application *app.App, log logger.Logger) {
	srv, err := application.NewHTTPServer(ctx)
	if err != nil {
		log.Fatal("Failed to build HTTP server", err)
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go application.RunSessionJanitor(janitorCtx, 10*time.Minute)

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", err)
		return
	}
	log.Info("Server exiting")
}

func printUsage() {
	fmt.Println("Usage: grocery-planner [command] [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Run the HTTP API (default)")
	fmt.Println("  export             Print a user's list: -email E [-history KEY]")
	fmt.Println("  migrate-store      Copy the JSON data file into the SQLite store")
	fmt.Println("  metrics-cleanup    Remove old metric records: -days N")
	fmt.Println("  metrics-usage      Show daily action totals: -days N")
}
