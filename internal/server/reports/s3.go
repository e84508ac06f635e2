package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/timekeeper/internal/netx"
	sc "github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	upload = netx.UploadToPresignedURL
)

const presignExpiry = 15 * time.Minute

// S3Archiver stores zipped admin reports in an S3-compatible bucket.
type S3Archiver struct {
	cfg    *sc.Config
	client *http.Client
	now    func() time.Time
}

func NewS3Archiver(cfg *sc.Config) *S3Archiver {
	return &S3Archiver{cfg: cfg, client: &http.Client{Timeout: time.Minute}, now: time.Now}
}

// StorageKey is a unique object key grouped by day.
func (a *S3Archiver) StorageKey() string {
	d := a.now()
	return fmt.Sprintf("reports/%d/%02d/%02d/%v.zip", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (a *S3Archiver) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.cfg.S3RootUser,
			a.cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(a.cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return newS3PresignClient(client), nil
}

// Archive uploads sheets as a zip of CSV files and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, sheets []models.Sheet) (string, error) {
	body, err := Zip(sheets)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	pc, err := a.presignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	bucket, key := a.cfg.S3Bucket, a.StorageKey()
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}

	if err := upload(ctx, a.client, req.URL, "application/zip", body); err != nil {
		return "", err
	}
	return key, nil
}
