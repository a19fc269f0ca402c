package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const defaultSignedURLTTL = time.Hour

type S3SignerOptions struct {
	// Endpoint overrides the AWS endpoint; https://storage.googleapis.com
	// signs gs:// objects through the GCS interoperability API.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	TTL             time.Duration
}

// S3Signer presigns GetObject requests with SigV4.
type S3Signer struct {
	client *s3.S3
	ttl    time.Duration
}

func NewS3Signer(opts S3SignerOptions) (*S3Signer, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	cfg := &aws.Config{
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	id, secret := strings.TrimSpace(opts.AccessKeyID), strings.TrimSpace(opts.SecretAccessKey)
	switch {
	case id != "" && secret != "":
		cfg.Credentials = credentials.NewStaticCredentials(id, secret, "")
	case id != "" || secret != "":
		return nil, errors.New("storage: access key id and secret must be set together")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create aws session: %w", err)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}
	return &S3Signer{client: s3.New(sess), ttl: ttl}, nil
}

func (s *S3Signer) SignURL(bucket, key string) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	signed, err := req.Presign(s.ttl)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return signed, nil
}

var _ URLSigner = (*S3Signer)(nil)
