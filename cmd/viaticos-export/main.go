package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
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

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("viaticos-export")
	var (
		dbPath     = fs.StringLong("db", "viaticos.db", "Database file path")
		outDir     = fs.StringLong("out", "./reports", "Directory the report is written to")
		technician = fs.StringLong("technician", "", "Only technicians whose name contains this text")
		client     = fs.StringLong("client", "", "Only clients whose name contains this text")
		from       = fs.StringLong("from", "", "First entry date to include (YYYY-MM-DD)")
		to         = fs.StringLong("to", "", "Last entry date to include (YYYY-MM-DD)")
		timezone   = fs.StringLong("timezone", "America/Guatemala", "Time zone for report dates and filters")
		logLevel   = fs.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("VIATICOS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(*logLevel, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *dbPath, *outDir, *timezone, *technician, *client, *from, *to); err != nil {
		logger.Error("Export failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, dbPath, outDir, timezone, technician, client, from, to string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("loading time zone %q: %w", timezone, err)
	}
	filter, err := viatico.ParseFilter(technician, client, from, to, loc)
	if err != nil {
		return err
	}

	db, err := viatico.NewBoltDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	store, err := viatico.NewLocalStorage(outDir)
	if err != nil {
		return err
	}

	service := viatico.NewService(db, store, report.NewBuilder(logger, loc), logger)
	rep, err := service.ExportReport(filter)
	if err != nil {
		return err
	}

	fmt.Printf("%s\t%d rows\t%s spent\n",
		filepath.Join(outDir, rep.FileName), len(rep.Rows), rep.Totals.Spent.StringFixed(2))
	if failed := rep.FailedSlots(); failed > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d image slots could not be rendered\n", failed)
	}
	return nil
}
