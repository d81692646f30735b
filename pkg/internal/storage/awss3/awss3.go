// Package awss3 提供基于 aws-sdk-go-v2 的对象存储后端，也可通过自定义 endpoint 连接 S3 兼容服务.
package awss3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	nlog "github.com/yeisme/eduaccess/pkg/log"
)

func init() {
	blob.RegisterFactory(configs.BlobAWS, func(ctx context.Context, cfg *configs.BlobConfig) (blob.Store, error) {
		return New(ctx, &cfg.S3)
	})
}

// Client aws S3 客户端及其预签名客户端.
type Client struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New 加载 aws 配置并创建客户端；未配置密钥时使用默认凭证链.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.GetEndpointURL()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}

		o.UsePathStyle = cfg.UsePathStyle
	})

	c := &Client{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.BucketName,
	}

	if err := c.HealthCheck(ctx); err != nil {
		if !cfg.CreateBucket {
			return nil, err
		}

		if _, cerr := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.BucketName)}); cerr != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, cerr)
		}
	}

	nlog.Logger().Info().Str("endpoint", endpoint).Str("bucket", cfg.BucketName).Msg("aws s3 connected")

	return c, nil
}

// Get 读取对象.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		}

		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	return data, nil
}

// Put 写入对象.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

// Remove 删除对象.
func (c *Client) Remove(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

// List 分页列出前缀下的对象.
func (c *Client) List(ctx context.Context, prefix string) ([]blob.Info, error) {
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	var out []blob.Info

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}

		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			out = append(out, blob.Info{
				Key:          key,
				Name:         blob.BaseName(key),
				Size:         aws.ToInt64(o.Size),
				ETag:         aws.ToString(o.ETag),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}

	return out, nil
}

// PresignGet 生成预签名下载链接.
func (c *Client) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return req.URL, nil
}

// HealthCheck 通过 HeadBucket 检查 bucket.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", c.bucket, err)
	}

	return nil
}
