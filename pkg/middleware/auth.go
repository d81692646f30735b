package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yeisme/eduaccess/pkg/configs"
	ctxPkg "github.com/yeisme/eduaccess/pkg/context"
)

const (
	headerAuthorization = "Authorization"
	headerDevUser       = "X-User-Id"
	principalKey        = "principal"
)

var errMissingToken = errors.New("missing bearer token")

// Claims 身份服务签发的访问令牌声明.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	// AppMetadata 部分身份服务把业务角色放在 app_metadata.role.
	AppMetadata map[string]any `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

// AppRole 返回业务角色，优先 app_metadata.role.
func (c *Claims) AppRole() string {
	if r, ok := c.AppMetadata["role"].(string); ok && r != "" {
		return r
	}

	return c.Role
}

// AuthMiddleware 校验 Bearer Token（HS256 共享密钥）并注入请求方身份。
//   - auth.enabled=false 时不校验，若带 X-User-Id 则作为请求方
//   - skip_paths 中的路径前缀直接放行（如 /metrics, /api/v1/health）
//   - 开发模式可用 X-User-Id 兜底（由 auth.dev_allow_header 控制）.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			if uid := strings.TrimSpace(c.GetHeader(headerDevUser)); uid != "" {
				setPrincipal(c, ctxPkg.Principal{UserID: uid})
			}

			c.Next()

			return
		}

		claims, err := ParseToken(conf, c.GetHeader(headerAuthorization))
		if err != nil {
			if errors.Is(err, errMissingToken) && conf.DevAllowHeader {
				if uid := strings.TrimSpace(c.GetHeader(headerDevUser)); uid != "" {
					setPrincipal(c, ctxPkg.Principal{UserID: uid})
					c.Next()

					return
				}
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		setPrincipal(c, ctxPkg.Principal{UserID: claims.Subject, Email: claims.Email, Role: claims.AppRole()})
		c.Next()
	}
}

// ParseToken 解析并校验 Authorization 头中的令牌.
func ParseToken(conf configs.AuthConfig, header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	raw = strings.TrimSpace(raw)

	if !ok || raw == "" {
		return nil, errMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if conf.Audience != "" {
		opts = append(opts, jwt.WithAudience(conf.Audience))
	}

	if conf.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.Issuer))
	}

	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(conf.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

func setPrincipal(c *gin.Context, p ctxPkg.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(ctxPkg.WithPrincipal(c.Request.Context(), p))
}

// GetPrincipal 从 gin.Context 获取请求方，未认证时 ok 为 false.
func GetPrincipal(c *gin.Context) (ctxPkg.Principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if p, ok2 := v.(ctxPkg.Principal); ok2 {
			return p, true
		}
	}

	return ctxPkg.GetPrincipal(c.Request.Context())
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
