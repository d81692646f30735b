package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// BlobType 对象存储后端类型.
type BlobType string

const (
	BlobMinIO  BlobType = "minio"  // MinIO 或任意 S3 兼容服务
	BlobAWS    BlobType = "aws"    // AWS S3（aws-sdk-go-v2）
	BlobMemory BlobType = "memory" // 进程内存储，仅用于开发与测试
)

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "materials"      // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultPresignExpiry     = 3600             // 预签名URL有效期（秒）
)

// BlobConfig 对象存储配置，Type 决定使用哪个后端.
type BlobConfig struct {
	Type          BlobType `mapstructure:"type"           rule:"oneof=minio aws memory"`
	PresignExpiry int      `mapstructure:"presign_expiry" rule:"min=60"`
	S3            S3Config `mapstructure:"s3"`
}

// S3Config S3 兼容存储配置，minio 与 aws 两个后端共用.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required"`
	Region          string `mapstructure:"region"`
	// UsePathStyle aws 后端连接自建 S3 时需开启.
	UsePathStyle bool `mapstructure:"use_path_style"`
	// CreateBucket 启动时桶不存在则创建.
	CreateBucket bool `mapstructure:"create_bucket"`
}

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	if c.Endpoint == "" {
		return ""
	}

	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置对象存储配置的默认值.
func (c *BlobConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("blob.type", BlobMinIO)
	v.SetDefault("blob.presign_expiry", DefaultPresignExpiry)
	v.SetDefault("blob.s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("blob.s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("blob.s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("blob.s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("blob.s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("blob.s3.region", DefaultS3Region)
	v.SetDefault("blob.s3.use_path_style", true)
	v.SetDefault("blob.s3.create_bucket", true)
}
