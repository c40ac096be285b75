package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver 将运行产物目录归档到 S3（可选能力，bucket 未配置时不启用）
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver 创建归档器
func NewS3Archiver(ctx context.Context, bucket, region, prefix string) (*S3Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// ArchiveDir 上传目录下所有文件，对象键为 <prefix>/<date>/<文件名>
func (a *S3Archiver) ArchiveDir(ctx context.Context, dir, date string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read artifact dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		localPath := filepath.Join(dir, entry.Name())
		key := filepath.ToSlash(filepath.Join(a.prefix, date, entry.Name()))
		if err := a.upload(ctx, localPath, key); err != nil {
			return fmt.Errorf("failed to archive %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (a *S3Archiver) upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	return err
}
