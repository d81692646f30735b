//go:build !no_sqlite && cgo

package db

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// sqliteBusyTimeoutMS 并发写入（处理 worker 与对账任务）时等待写锁的毫秒数.
const sqliteBusyTimeoutMS = "5000"

// createSQLiteDialector 创建 SQLite dialector (mattn/go-sqlite3)，未显式设置时补上 busy timeout.
func createSQLiteDialector(dsn string) gorm.Dialector {
	if !strings.Contains(dsn, "_busy_timeout") {
		dsn = appendDSNParam(dsn, "_busy_timeout="+sqliteBusyTimeoutMS)
	}

	return sqlite.Open(dsn)
}

func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
