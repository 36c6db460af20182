package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/bagstock_backend/backup"
	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"bitbucket.org/mmdatafocus/bagstock_backend/models"
	"bitbucket.org/mmdatafocus/bagstock_backend/workflow"
)

func main() {
	dbPath := flag.String("db", config.DatabasePath(), "Path to the live SQLite database")
	cfgPath := flag.String("config", config.ConfigPath(), "Path to the JSON config file")
	lowOnly := flag.Bool("low", false, "Show only dimensions under the low-stock threshold")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ConnectDatabase(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	db := config.GetDB()
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	mgr := backup.NewManager(*dbPath, config.BackupDir(), cfg.BackupsToKeep, config.GetLogger())
	eng := workflow.NewLedgerEngine(db, mgr, config.GetLogger(), cfg)

	ctx := context.Background()
	var rows []models.DimensionStock
	if *lowOnly {
		rows, err = eng.LowStock(ctx)
	} else {
		rows, err = eng.CurrentStock(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		fmt.Println("no stock recorded")
		return
	}
	for _, r := range rows {
		fmt.Printf("%-20s %s\n", r.Dimension, r.Balance.String())
	}
	if *lowOnly {
		fmt.Printf("threshold: %s\n", cfg.LowStockThreshold.String())
	}
}
