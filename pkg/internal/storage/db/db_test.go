package db

import (
	"slices"
	"testing"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func TestAppendDSNParam(t *testing.T) {
	tests := []struct {
		dsn, param, want string
	}{
		{"file:eduaccess.db", "_busy_timeout=5000", "file:eduaccess.db?_busy_timeout=5000"},
		{"u:p@tcp(db:3306)/ea?charset=utf8mb4", "parseTime=True", "u:p@tcp(db:3306)/ea?charset=utf8mb4&parseTime=True"},
	}

	for _, tt := range tests {
		if got := appendDSNParam(tt.dsn, tt.param); got != tt.want {
			t.Errorf("appendDSNParam(%q, %q) = %q, want %q", tt.dsn, tt.param, got, tt.want)
		}
	}
}

func TestRegisteredDBTypes(t *testing.T) {
	types := GetRegisteredDBTypes()

	for _, want := range []configs.DBType{configs.SQLite, configs.MySQL, configs.PostgreSQL} {
		if !slices.Contains(types, want) {
			t.Errorf("%s not registered: %v", want, types)
		}
	}

	if !slices.IsSorted(types) {
		t.Errorf("types not sorted: %v", types)
	}
}
