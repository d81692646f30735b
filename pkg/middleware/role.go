package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/log"
)

// ProfileLookup 按身份 id 查询本地资料，*storage.Gateway 实现该接口.
type ProfileLookup interface {
	FetchProfile(ctx context.Context, id string) (*model.UserProfile, error)
}

// RequireAdmin 要求请求方为管理员，不满足返回 401/403。
//
// 令牌中的角色声明优先；否则查询本地 profiles 表的 role。
// auth.enabled=false 时直接放行.
func RequireAdmin(conf configs.AuthConfig, profiles ProfileLookup) gin.HandlerFunc {
	adminRole := strings.TrimSpace(conf.AdminRole)
	if adminRole == "" {
		adminRole = model.RoleAdmin
	}

	return func(c *gin.Context) {
		if !conf.Enabled {
			c.Next()
			return
		}

		p, ok := GetPrincipal(c)
		if !ok || p.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if strings.EqualFold(p.Role, adminRole) {
			c.Next()
			return
		}

		if profiles != nil {
			prof, err := profiles.FetchProfile(c.Request.Context(), p.UserID)
			if err != nil {
				log.Logger().Debug().Err(err).Str("user_id", p.UserID).Msg("admin guard: profile lookup failed")
			} else if strings.EqualFold(prof.Role, adminRole) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: admin role required"})
	}
}
