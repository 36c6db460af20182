package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
	"github.com/sirupsen/logrus"
)

// BackupId names one immutable artifact inside the backup directory. Ids sort
// lexicographically in creation order.
type BackupId string

const backupPrefix = "backup_db_"

const defaultKeep = 30

// Manager copies the live database file into a backup directory and prunes
// old copies past the retention count. It never touches the live database
// except in Restore.
type Manager struct {
	dbPath string
	dir    string
	keep   int
	logger *logrus.Logger
}

func NewManager(dbPath, dir string, keep int, logger *logrus.Logger) *Manager {
	if keep <= 0 {
		keep = defaultKeep
	}
	return &Manager{dbPath: dbPath, dir: dir, keep: keep, logger: logger}
}

// Create copies the live database into a new timestamped artifact and
// confirms it durable before returning. On any failure the partial artifact
// is removed and the caller must abort its mutation: no backup, no write.
func (m *Manager) Create() (BackupId, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create backup dir: %v", utils.ErrBackupFailed, err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("%s%s_%09d.db", backupPrefix, now.Format("20060102_150405"), now.Nanosecond())
	dst := filepath.Join(m.dir, name)

	if err := copyFileSync(m.dbPath, dst); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("%w: %v", utils.ErrBackupFailed, err)
	}
	// Best-effort directory sync so the new entry survives a crash.
	if d, err := os.Open(m.dir); err == nil {
		d.Sync()
		d.Close()
	}

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"backup_id": name}).Info("backup.created")
	}
	m.pruneOldBackups(name)
	return BackupId(name), nil
}

// Restore overwrites the live database with the artifact's contents. Any
// ledger state created after that backup is lost; callers opt into this
// explicitly, the engine never calls it on its own.
func (m *Manager) Restore(id BackupId) error {
	src := filepath.Join(m.dir, string(id))
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return utils.ErrorRecordNotFound
	} else if err != nil {
		return err
	}
	if err := copyFileSync(src, m.dbPath); err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"backup_id": string(id)}).Info("backup.restored")
	}
	return nil
}

// List returns every artifact id, oldest first.
func (m *Manager) List() ([]BackupId, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []BackupId
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		ids = append(ids, BackupId(e.Name()))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// pruneOldBackups keeps the newest keep artifacts. The artifact just written
// is never a deletion candidate, and prune failures only log: retention is
// housekeeping, not a reason to fail the mutation that triggered it.
func (m *Manager) pruneOldBackups(justCreated string) {
	ids, err := m.List()
	if err != nil {
		if m.logger != nil {
			m.logger.WithError(err).Warn("backup.prune_list_failed")
		}
		return
	}
	if len(ids) <= m.keep {
		return
	}
	for _, id := range ids[:len(ids)-m.keep] {
		if string(id) == justCreated {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, string(id))); err != nil && m.logger != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{"backup_id": string(id)}).Warn("backup.prune_failed")
		}
	}
}

func copyFileSync(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
