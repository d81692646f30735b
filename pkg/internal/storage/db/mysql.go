//go:build !no_mysql

package db

import (
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// createMySQLDialector 创建 MySQL dialector.
// 显式配置的 dsn 缺少 parseTime 时补上，否则 updated_at 无法扫描为 time.Time.
func createMySQLDialector(dsn string) gorm.Dialector {
	if !strings.Contains(dsn, "parseTime=") {
		dsn = appendDSNParam(dsn, "parseTime=True")
	}

	return mysql.Open(dsn)
}

func init() {
	RegisterDialectorFactory(configs.MySQL, createMySQLDialector)
	RegisterDialectorFactory(configs.MariaDB, createMySQLDialector)
}
