// Package blob 定义对象存储的统一接口，并通过工厂注册不同后端（minio、aws、memory）.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// ErrNotFound 对象不存在.
var ErrNotFound = errors.New("blob not found")

// Info 对象描述.
type Info struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"` // key 去掉目录后的文件名
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store 对象存储操作，不做任何重试.
type Store interface {
	// Get 读取完整对象，不存在时返回 ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put 写入对象，已存在则覆盖.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Remove 删除对象，不存在时不报错.
	Remove(ctx context.Context, key string) error
	// List 列出 key 以 prefix 开头的对象.
	List(ctx context.Context, prefix string) ([]Info, error)
	// PresignGet 生成限时下载链接.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	HealthCheck(ctx context.Context) error
}

// Factory 按配置创建 Store.
type Factory func(ctx context.Context, cfg *configs.BlobConfig) (Store, error)

var factories = map[configs.BlobType]Factory{}

// RegisterFactory 注册对象存储后端.
func RegisterFactory(t configs.BlobType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的后端类型.
func GetRegisteredTypes() []configs.BlobType {
	types := make([]configs.BlobType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 根据配置创建对象存储.
func New(ctx context.Context, cfg *configs.BlobConfig) (Store, error) {
	f, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported blob type: %s", cfg.Type)
	}

	return f(ctx, cfg)
}

// SplitKey 按第一个 "/" 把 key 拆成 (folder, filename)；没有 "/" 时 folder 为空.
func SplitKey(key string) (folder, filename string) {
	if i := strings.Index(key, "/"); i >= 0 {
		return key[:i], key[i+1:]
	}

	return "", key
}

// JoinKey 拼接 folder 与 filename.
func JoinKey(folder, filename string) string {
	if folder == "" {
		return filename
	}

	return strings.TrimSuffix(folder, "/") + "/" + filename
}

// BaseName 返回 key 的最后一段.
func BaseName(key string) string {
	return path.Base(key)
}
