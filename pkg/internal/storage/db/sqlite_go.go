//go:build !no_sqlite && !cgo

package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// sqliteBusyTimeoutMS 并发写入（处理 worker 与对账任务）时等待写锁的毫秒数.
const sqliteBusyTimeoutMS = "5000"

// createSQLiteDialector 创建 SQLite dialector (纯 Go 版本)，未显式设置时补上 busy_timeout pragma.
func createSQLiteDialector(dsn string) gorm.Dialector {
	if !strings.Contains(dsn, "busy_timeout") {
		dsn = appendDSNParam(dsn, "_pragma=busy_timeout("+sqliteBusyTimeoutMS+")")
	}

	return sqlite.Open(dsn)
}

func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
