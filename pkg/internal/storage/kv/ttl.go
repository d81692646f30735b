package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// 没有原生过期能力的实现使用的 TTL 包装前缀.
const ttlMagic = "EATTL1:"

type ttlValue struct {
	V []byte `json:"v"`
	E int64  `json:"e,omitempty"` // 过期时间（unix 毫秒），0 表示不过期
}

// encodeWithTTL ttl>0 时包装值，否则原样返回.
func encodeWithTTL(value []byte, ttl time.Duration, now time.Time) ([]byte, bool, error) {
	if ttl <= 0 {
		return value, false, nil
	}

	tv := ttlValue{V: value, E: now.Add(ttl).UnixMilli()}

	b, err := sonic.Marshal(tv)
	if err != nil {
		return nil, false, fmt.Errorf("marshal ttl value: %w", err)
	}

	return append([]byte(ttlMagic), b...), true, nil
}

// decodeWithTTL 识别包装并判断是否过期，返回 (value, expired, wrapped, error).
func decodeWithTTL(b []byte, now time.Time) ([]byte, bool, bool, error) {
	if !bytes.HasPrefix(b, []byte(ttlMagic)) {
		return b, false, false, nil
	}

	var tv ttlValue
	if err := sonic.Unmarshal(b[len(ttlMagic):], &tv); err != nil {
		return nil, false, true, fmt.Errorf("unmarshal ttl value: %w", err)
	}

	if tv.E > 0 && now.UnixMilli() >= tv.E {
		return nil, true, true, nil
	}

	return tv.V, false, true, nil
}
