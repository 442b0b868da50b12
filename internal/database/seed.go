package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Seed fills a freshly migrated snapshot database with sample scan
// results so the browser can run without a collector: fifty devices,
// four services each, and the import record the collector would have
// written. Mirrors the collector's conventions: booleans as 1/0,
// datetimes as ISO text.
func Seed(ctx context.Context, db *sql.DB, now time.Time) error {
	banners := map[int]string{
		21:   "ProFTPD 1.3.6d Server",
		22:   "SSH-2.0-OpenSSH_8.2",
		443:  "Apache/2.4.43",
		3306: "MySQL 8.0.20",
	}

	created := now.UTC().Format("2006-01-02 15:04:05")
	rows := 0

	err := WithTx(db, func(tx *sql.Tx) error {
		for i := 1; i <= 50; i++ {
			mac := fmt.Sprintf("6F:30:7D:44:12:%02x", i)
			hostname := fmt.Sprintf("linux-server-%d", i)
			ip := fmt.Sprintf("10.0.0.%d", i)
			online := 0
			if i%4 != 0 {
				online = 1
			}
			lastSeen := now.UTC().Add(-time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO devices(mac, hostname, ip, is_online, last_seen, created_at)
				VALUES(?, ?, ?, ?, ?, ?)`,
				mac, hostname, ip, online, lastSeen, created); err != nil {
				return fmt.Errorf("seed device %s: %w", mac, err)
			}
			rows++

			for _, port := range []int{21, 22, 443, 3306} {
				encrypted := 0
				if port == 22 || port == 443 {
					encrypted = 1
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO services(ip, port, protocol, banner, is_encrypted, created_at)
					VALUES(?, ?, ?, ?, ?, ?)`,
					ip, port, "tcp", banners[port], encrypted, created); err != nil {
					return fmt.Errorf("seed service %s:%d: %w", ip, port, err)
				}
				rows++
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO imports(id, module, has_errors, imported_rows, created_at)
			VALUES(?, ?, 0, ?, ?)`,
			uuid.NewString(), "sample", rows, created); err != nil {
			return fmt.Errorf("seed import record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// SnapshotFilename returns the collector's timestamped naming for a new
// snapshot, e.g. watchtower_1700000000.db.
func SnapshotFilename(name string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%d.%s", name, now.Unix(), ext)
}
