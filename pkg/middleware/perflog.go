package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/log"
)

const maxUserAgentLen = 512

// PerfLogWriter 异步批量写入 performance_logs，缓冲满时丢弃.
type PerfLogWriter struct {
	db       *gorm.DB
	ch       chan model.PerformanceLog
	batch    int
	interval time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewPerfLogWriter 创建写入器并启动后台写入协程.
func NewPerfLogWriter(db *gorm.DB, cfg configs.PerfLogConfig) *PerfLogWriter {
	w := &PerfLogWriter{
		db:       db,
		ch:       make(chan model.PerformanceLog, max(cfg.Buffer, 1)),
		batch:    max(cfg.BatchSize, 1),
		interval: cfg.FlushInterval,
		done:     make(chan struct{}),
	}
	if w.interval <= 0 {
		w.interval = time.Second
	}

	go w.loop()

	return w
}

// Record 提交一条记录，缓冲已满或写入器已关闭时返回 false.
func (w *PerfLogWriter) Record(entry model.PerformanceLog) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}

	select {
	case w.ch <- entry:
		return true
	default:
		return false
	}
}

// Close 停止接收并写完缓冲中的记录.
func (w *PerfLogWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()

	<-w.done
}

func (w *PerfLogWriter) loop() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	buf := make([]model.PerformanceLog, 0, w.batch)

	for {
		select {
		case entry, ok := <-w.ch:
			if !ok {
				w.flush(buf)
				return
			}

			buf = append(buf, entry)
			if len(buf) >= w.batch {
				w.flush(buf)
				buf = buf[:0]
			}
		case <-ticker.C:
			if len(buf) > 0 {
				w.flush(buf)
				buf = buf[:0]
			}
		}
	}
}

func (w *PerfLogWriter) flush(entries []model.PerformanceLog) {
	if len(entries) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.db.WithContext(ctx).CreateInBatches(entries, w.batch).Error; err != nil {
		log.Logger().Warn().Err(err).Int("count", len(entries)).Msg("write performance logs failed")
	}
}

// PerformanceLogMiddleware 为每个请求记录方法、路由、状态码与耗时.
func PerformanceLogMiddleware(w *PerfLogWriter, skipPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if w == nil || isSkippedPath(c.Request.URL.Path, skipPaths) {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		entry := model.PerformanceLog{
			Method:     c.Request.Method,
			Route:      route,
			StatusCode: c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			IP:         c.ClientIP(),
			UserAgent:  truncate(c.Request.UserAgent(), maxUserAgentLen),
			CreatedAt:  start.UTC(),
		}
		if p, ok := GetPrincipal(c); ok {
			entry.UserID = p.UserID
		}

		if !w.Record(entry) {
			log.Logger().Debug().Str("route", route).Msg("performance log dropped")
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return strings.ToValidUTF8(s[:n], "")
}
