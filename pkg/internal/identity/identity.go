// Package identity 读取外部身份服务中的用户目录.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// ErrNotConfigured 未配置身份服务地址.
var ErrNotConfigured = errors.New("identity directory is not configured")

// User 身份目录中的用户.
type User struct {
	ID       string
	Email    string
	FullName string
	Role     string
}

// Directory 用户目录.
type Directory interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Client GoTrue 风格的 admin 用户接口客户端.
type Client struct {
	baseURL    string
	serviceKey string
	perPage    int
	http       *http.Client
}

// New 创建客户端，base_url 为空时返回 ErrNotConfigured.
func New(cfg configs.IdentityConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 200
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		perPage:    perPage,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

type adminUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

type listResponse struct {
	Users []adminUser `json:"users"`
}

// ListUsers 逐页拉取，直到某一页不足 per_page 条.
// 角色只取 app_metadata：user_metadata 可由用户自行修改.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User

	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}

		for _, u := range batch {
			out = append(out, User{
				ID:       u.ID,
				Email:    u.Email,
				FullName: metaString(u.UserMetadata, "full_name", "name"),
				Role:     metaString(u.AppMetadata, "role"),
			})
		}

		if len(batch) < c.perPage {
			return out, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, page int) ([]adminUser, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/users?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create list users request: %w", err)
	}

	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list users page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read users page %d: %w", page, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list users page %d: status %d: %s", page, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload listResponse
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode users page %d: %w", page, err)
	}

	return payload.Users, nil
}

func metaString(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := meta[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	return ""
}

// Static 固定用户列表，CLI 与测试使用.
type Static []User

func (s Static) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return append([]User(nil), s...), nil
}
