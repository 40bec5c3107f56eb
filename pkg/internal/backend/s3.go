package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync/atomic"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/singleflight"

	"github.com/khaznati/chunkvault/pkg/configs"
	"github.com/khaznati/chunkvault/pkg/internal/types"
	nlog "github.com/khaznati/chunkvault/pkg/log"
)

const s3BackendName = "s3"

// S3Backend 基于 MinIO 客户端的对象后端，每个分块是 bucket 里的一个对象.
type S3Backend struct {
	cfg configs.S3Config

	// 连接惰性建立，singleflight 保证并发调用只建一次，
	// 客户端指针用原子读写避免快路径与建连写入竞争
	sf  singleflight.Group
	cli atomic.Pointer[minio.Client]
}

// NewS3Backend 创建 S3 后端，不立即建连.
func NewS3Backend(cfg configs.S3Config) *S3Backend {
	return &S3Backend{cfg: cfg}
}

// Name 返回后端标识.
func (b *S3Backend) Name() string {
	return s3BackendName
}

// Connect 建立客户端并确保 bucket 存在，幂等且并发安全.
func (b *S3Backend) Connect(ctx context.Context) error {
	if b.cli.Load() != nil {
		return nil
	}

	_, err, _ := b.sf.Do("connect", func() (any, error) {
		if b.cli.Load() != nil {
			return nil, nil
		}

		endpoint := b.cfg.Endpoint
		useSSL := b.cfg.UseSSL
		// 允许用户传完整 schema endpoint（http:// 或 https://）
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
			if u.Scheme == "https" {
				useSSL = true
			}
		}

		cli, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(b.cfg.AccessKeyID, b.cfg.SecretAccessKey, ""),
			Secure: useSSL,
			Region: b.cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}

		cli.SetAppInfo("chunkvault", configs.AppVersion)

		exists, err := cli.BucketExists(ctx, b.cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", b.cfg.Bucket, mapS3Error(err))
		}

		if !exists {
			if err := cli.MakeBucket(ctx, b.cfg.Bucket, minio.MakeBucketOptions{Region: b.cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", b.cfg.Bucket, mapS3Error(err))
			}

			nlog.Logger().Info().Str("bucket", b.cfg.Bucket).Msg("bucket created")
		}

		b.cli.Store(cli)

		nlog.Logger().Info().Str("endpoint", b.cfg.Endpoint).Str("bucket", b.cfg.Bucket).Msg("s3 connected")

		return nil, nil
	})

	return err
}

// Put 写入一个分块，对象键为 <prefix>/<ulid>.
func (b *S3Backend) Put(ctx context.Context, data []byte) (Locator, error) {
	start := time.Now()

	if err := b.Connect(ctx); err != nil {
		return "", err
	}

	key := path.Join(b.cfg.KeyPrefix, types.NewID())

	_, err := b.cli.Load().PutObject(ctx, b.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	err = mapS3Error(err)

	observe("put", s3BackendName, start, err)

	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return Locator(key), nil
}

// Get 按对象键读回分块.
func (b *S3Backend) Get(ctx context.Context, loc Locator) ([]byte, error) {
	start := time.Now()

	if err := b.Connect(ctx); err != nil {
		return nil, err
	}

	obj, err := b.cli.Load().GetObject(ctx, b.cfg.Bucket, string(loc), minio.GetObjectOptions{})
	if err != nil {
		err = mapS3Error(err)
		observe("get", s3BackendName, start, err)

		return nil, fmt.Errorf("get object %s: %w", loc, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	err = mapS3Error(err)

	observe("get", s3BackendName, start, err)

	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", loc, err)
	}

	return data, nil
}

// Delete 按对象键删除分块，S3 删除不存在的对象本身不报错.
func (b *S3Backend) Delete(ctx context.Context, loc Locator) error {
	start := time.Now()

	if err := b.Connect(ctx); err != nil {
		return err
	}

	err := mapS3Error(b.cli.Load().RemoveObject(ctx, b.cfg.Bucket, string(loc), minio.RemoveObjectOptions{}))

	observe("delete", s3BackendName, start, err)

	if err != nil {
		return fmt.Errorf("delete object %s: %w", loc, err)
	}

	return nil
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (b *S3Backend) Close() error {
	return nil
}

// mapS3Error 把 S3 错误响应翻译为后端错误类型.
func mapS3Error(err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)

	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	case "SlowDown", "TooManyRequests":
		// S3 不携带 Retry-After，让调用方用退避策略
		return NewThrottledError(0)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return NewThrottledError(0)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	return err
}

func init() {
	RegisterBackendFactory(configs.BackendS3, func(cfg *configs.AppConfig) (ObjectBackend, error) {
		return NewS3Backend(cfg.S3), nil
	})
}
