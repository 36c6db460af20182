package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"bitbucket.org/mmdatafocus/bagstock_backend/models"
	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
	"bitbucket.org/mmdatafocus/bagstock_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	dbPath := flag.String("db", config.DatabasePath(), "Path to the live SQLite database")
	dimension := flag.String("dimension", "", "Optional: rebuild a single dimension (raw form accepted)")
	from := flag.String("from", "", "Optional: rebuild only from this date (YYYY-MM-DD) instead of the full history")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing dimensions and continue rebuilding others")
	flag.Parse()

	var fromKey *models.LogicalKey
	if strings.TrimSpace(*from) != "" {
		d, err := utils.ParseDate(*from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -from date: %v\n", err)
			os.Exit(1)
		}
		fromKey = &models.LogicalKey{Date: d}
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
	logger := logrus.New()

	var dims []string
	if strings.TrimSpace(*dimension) != "" {
		d, err := models.NormalizeDimension(*dimension)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid dimension: %v\n", err)
			os.Exit(1)
		}
		dims = []string{d}
	} else {
		var err error
		dims, err = models.ListDimensions(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list dimensions: %v\n", err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, d := range dims {
		err := db.Transaction(func(tx *gorm.DB) error {
			if fromKey != nil {
				return workflow.RebuildDimensionBalances(tx, logger, d, *fromKey)
			}
			return workflow.RebuildDimension(tx, logger, d)
		})
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "rebuild %s: %v\n", d, err)
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		fmt.Printf("rebuilt %s\n", d)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
