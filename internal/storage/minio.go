package storage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"hr-agent-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO 候选人CV文件对象存储。
// CV文件由外部协作方写入，本核心只生成预签名下载链接。
type MinIO struct {
	client   *minio.Client
	cfg      *config.MinIOConfig
	cvBucket string
	logger   *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	cvBucket := cfg.CVBucket
	if cvBucket == "" {
		cvBucket = "candidate-cvs"
	}

	m := &MinIO{
		client:   client,
		cfg:      cfg,
		cvBucket: cvBucket,
		logger:   logger,
	}

	if err := m.ensureBucketExists(context.Background(), cvBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保CV存储桶 %s 存在失败: %w", cvBucket, err)
	}

	return m, nil
}

// ensureBucketExists 存储桶不存在时创建
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶是否存在失败: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	if m.logger != nil {
		m.logger.Printf("[MinIO] 已创建存储桶: %s", bucketName)
	}
	return nil
}

// PresignedCVURL 为CV对象生成预签名下载链接。
// cvRef 可能是完整的http(s)链接（外部托管，原样返回）或桶内对象键。
func (m *MinIO) PresignedCVURL(ctx context.Context, cvRef string, expiry time.Duration) (string, error) {
	if cvRef == "" {
		return "", fmt.Errorf("CV引用为空")
	}
	if strings.HasPrefix(cvRef, "http://") || strings.HasPrefix(cvRef, "https://") {
		return cvRef, nil
	}

	presignedURL, err := m.client.PresignedGetObject(ctx, m.cvBucket, cvRef, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败 (%s): %w", cvRef, err)
	}
	return presignedURL.String(), nil
}
