package model

import "time"

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// UserProfile 外部身份在本地的镜像，id 与身份服务一致.
type UserProfile struct {
	ID       string `gorm:"primaryKey;size:64"               json:"id"`
	Email    string `gorm:"size:320;index"                   json:"email"`
	Role     string `gorm:"size:16;not null;default:student" json:"role"`
	FullName string `gorm:"size:255"                         json:"full_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名.
func (UserProfile) TableName() string { return "profiles" }
