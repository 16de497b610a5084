//go:build cgo

package storage

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func init() {
	registerDriver(sqlDriver{name: "sqlite3", dsn: cgoDSN})
}

func cgoDSN(path string, busyTimeoutMs int) string {
	return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=1",
		path, busyTimeoutMs)
}
