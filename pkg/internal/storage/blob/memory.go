package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func init() {
	RegisterFactory(configs.BlobMemory, func(_ context.Context, _ *configs.BlobConfig) (Store, error) {
		return NewMemory(), nil
	})
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Memory 进程内对象存储，重启即丢失.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

// NewMemory 创建内存对象存储.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	out := make([]byte, len(obj.data))
	copy(out, obj.data)

	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[key] = memObject{data: buf, contentType: contentType, modified: time.Now().UTC()}
	m.mu.Unlock()

	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Info

	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		sum := md5.Sum(obj.data)
		out = append(out, Info{
			Key:          key,
			Name:         BaseName(key),
			Size:         int64(len(obj.data)),
			ContentType:  obj.contentType,
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: obj.modified,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.Delete(key)

	return nil
}

// Delete 删除对象，测试中用于模拟文件丢失.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
}

func (m *Memory) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	q := url.Values{}
	q.Set("expires", time.Now().Add(expiry).UTC().Format(time.RFC3339))

	return "memory://" + key + "?" + q.Encode(), nil
}

func (m *Memory) HealthCheck(context.Context) error { return nil }
