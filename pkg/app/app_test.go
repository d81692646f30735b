package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/eduaccess/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGlobalMiddlewareRecordsRejectedRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *configs.AppConfig)
		want   map[int]int
	}{
		{
			name: "auth rejected",
			mutate: func(cfg *configs.AppConfig) {
				cfg.Auth.Enabled = true
				cfg.Auth.JWTSecret = "secret"
				cfg.Auth.DevAllowHeader = false
				cfg.Auth.SkipPaths = nil
			},
			want: map[int]int{http.StatusUnauthorized: 3},
		},
		{
			name: "rate limited",
			mutate: func(cfg *configs.AppConfig) {
				cfg.Auth.Enabled = false
				cfg.RateLimit = configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "global"}
			},
			want: map[int]int{http.StatusOK: 1, http.StatusTooManyRequests: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dbtest.Open(t)
			writer := middleware.NewPerfLogWriter(client.DB, configs.PerfLogConfig{
				Buffer: 16, BatchSize: 1, FlushInterval: 10 * time.Millisecond,
			})

			cfg := configs.Defaults()
			cfg.CircuitBreaker.Enabled = false
			cfg.Server.EnableGzip = false
			cfg.Stats.PerfLog.SkipPaths = nil
			tt.mutate(&cfg)

			engine := gin.New()
			engine.Use(globalMiddleware(&cfg, nil, nil, writer)...)
			engine.GET("/admin/stats", func(c *gin.Context) { c.Status(http.StatusOK) })

			for i := 0; i < 3; i++ {
				w := httptest.NewRecorder()
				engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
			}

			writer.Close()

			var logs []model.PerformanceLog
			if err := client.DB.Find(&logs).Error; err != nil {
				t.Fatalf("query: %v", err)
			}

			got := map[int]int{}
			for _, l := range logs {
				got[l.StatusCode]++
			}

			if len(got) != len(tt.want) {
				t.Fatalf("status counts = %v, want %v", got, tt.want)
			}

			for code, n := range tt.want {
				if got[code] != n {
					t.Errorf("status %d logged %d time(s), want %d (all: %v)", code, got[code], n, got)
				}
			}
		})
	}
}

func TestGlobalMiddlewareRecordsPanics(t *testing.T) {
	client := dbtest.Open(t)
	writer := middleware.NewPerfLogWriter(client.DB, configs.PerfLogConfig{Buffer: 4, BatchSize: 1})

	cfg := configs.Defaults()
	cfg.Auth.Enabled = false
	cfg.RateLimit.Enabled = false
	cfg.CircuitBreaker.Enabled = false
	cfg.Stats.PerfLog.SkipPaths = nil

	engine := gin.New()
	engine.Use(globalMiddleware(&cfg, nil, nil, writer)...)
	engine.GET("/boom", func(*gin.Context) { panic("nil blob store") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	writer.Close()

	var logs []model.PerformanceLog
	if err := client.DB.Find(&logs).Error; err != nil {
		t.Fatalf("query: %v", err)
	}

	if w.Code != http.StatusInternalServerError || len(logs) != 1 || logs[0].StatusCode != http.StatusInternalServerError {
		t.Fatalf("response %d, logs %+v", w.Code, logs)
	}
}
