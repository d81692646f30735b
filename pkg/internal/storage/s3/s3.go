// Package s3 提供基于 MinIO SDK 的 S3 兼容对象存储后端.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	nlog "github.com/yeisme/eduaccess/pkg/log"
)

func init() {
	blob.RegisterFactory(configs.BlobMinIO, func(ctx context.Context, cfg *configs.BlobConfig) (blob.Store, error) {
		return New(ctx, &cfg.S3)
	})
}

// Client 包装 MinIO 客户端，固定操作一个 bucket.
type Client struct {
	*minio.Client
	bucket string
}

// New 初始化 MinIO 客户端，若 bucket 不存在且允许则创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("bucket %s does not exist", cfg.BucketName)
		}

		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.BucketName}, nil
}

// Get 读取对象.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapErr(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapErr(key, err)
	}

	return data, nil
}

// Put 写入对象.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

// Remove 删除对象，对象不存在时 S3 也返回成功.
func (c *Client) Remove(ctx context.Context, key string) error {
	if err := c.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

// List 递归列出前缀下的对象.
func (c *Client) List(ctx context.Context, prefix string) ([]blob.Info, error) {
	var out []blob.Info

	for obj := range c.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, obj.Err)
		}

		out = append(out, blob.Info{
			Key:          obj.Key,
			Name:         blob.BaseName(obj.Key),
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	return out, nil
}

// PresignGet 生成预签名下载链接.
func (c *Client) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.PresignedGetObject(ctx, c.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", wrapErr(key, err)
	}

	return u.String(), nil
}

// HealthCheck 检查 bucket 是否可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s missing", c.bucket)
	}

	return nil
}

// Bucket 返回当前使用的 bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

func wrapErr(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read object %s: %w", key, err)
	}

	return fmt.Errorf("object %s: %w", key, err)
}
