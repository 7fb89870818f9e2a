package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/homme-x/PES-Tournament-Manager/internal/model"
)

type S3Config struct {
	Bucket string
	Region string
	// Endpoint points the client at an S3 compatible service (R2, MinIO).
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores each session's results as JSON documents under
// sessions/<id>/.
type S3Archive struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Archive(client, cfg.Bucket), nil
}

func newS3Archive(client objectPutter, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, now: time.Now}
}

type standingsDocument struct {
	SessionID  string       `json:"sessionId"`
	RecordedAt time.Time    `json:"recordedAt"`
	Pools      []model.Pool `json:"pools"`
}

type bracketDocument struct {
	SessionID  string                `json:"sessionId"`
	RecordedAt time.Time             `json:"recordedAt"`
	Matches    []model.KnockoutMatch `json:"matches"`
}

func (a *S3Archive) RecordStandings(ctx context.Context, sessionID string, pools []model.Pool) error {
	return a.put(ctx, objectKey(sessionID, "standings.json"), standingsDocument{
		SessionID:  sessionID,
		RecordedAt: a.now().UTC(),
		Pools:      pools,
	})
}

func (a *S3Archive) RecordBracket(ctx context.Context, sessionID string, matches []model.KnockoutMatch) error {
	return a.put(ctx, objectKey(sessionID, "bracket.json"), bracketDocument{
		SessionID:  sessionID,
		RecordedAt: a.now().UTC(),
		Matches:    matches,
	})
}

func (a *S3Archive) put(ctx context.Context, key string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (a *S3Archive) Close() error { return nil }

func objectKey(sessionID, name string) string {
	return "sessions/" + sessionID + "/" + name
}
