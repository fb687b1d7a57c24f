package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"go.uber.org/zap"

	"github.com/zombor/viatico-tracker/internal/logging"
	"github.com/zombor/viatico-tracker/internal/report"
	"github.com/zombor/viatico-tracker/internal/viatico"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; real environment variables still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("viaticos")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "viaticos.db", "Database file path")
		storagePath = fs.StringLong("storage", "./reports", "Directory for archived reports")
		timezone    = fs.StringLong("timezone", "America/Guatemala", "Time zone for report dates and filters")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logDev      = fs.BoolLong("log-dev", "Human-readable development logging")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("VIATICOS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger, err := logging.New(*logLevel, *logDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		logger.Fatal("Invalid time zone", zap.String("timezone", *timezone), zap.Error(err))
	}

	// Initialize database
	logger.Info("Initializing database...", zap.String("path", *dbPath))
	db, err := viatico.NewBoltDB(*dbPath)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize storage
	logger.Info("Initializing storage...", zap.String("path", *storagePath))
	store, err := viatico.NewLocalStorage(*storagePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	builder := report.NewBuilder(logger.Named("report"), loc)
	service := viatico.NewService(db, store, builder, logger.Named("service"))
	server := viatico.NewServer(service, logger.Named("http"))

	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("address", fmt.Sprintf("http://localhost%s", addr)),
		zap.String("timezone", loc.String()),
		zap.String("version", version),
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
