package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/bagstock_backend/backup"
	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"github.com/sirupsen/logrus"
)

func main() {
	dbPath := flag.String("db", config.DatabasePath(), "Path to the live SQLite database")
	dir := flag.String("backup-dir", config.BackupDir(), "Backup directory")
	id := flag.String("id", "", "Backup id to restore over the live database")
	list := flag.Bool("list", false, "List available backups, oldest first")
	flag.Parse()

	mgr := backup.NewManager(*dbPath, *dir, 0, logrus.New())

	if *list {
		ids, err := mgr.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list backups: %v\n", err)
			os.Exit(1)
		}
		for _, b := range ids {
			fmt.Println(string(b))
		}
		return
	}

	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(os.Stderr, "--id is required (or use --list)")
		os.Exit(1)
	}

	// Restoring discards everything recorded after the backup was taken.
	if err := mgr.Restore(backup.BackupId(*id)); err != nil {
		fmt.Fprintf(os.Stderr, "restore %s: %v\n", *id, err)
		os.Exit(1)
	}
	fmt.Printf("restored %s over %s\n", *id, *dbPath)
}
