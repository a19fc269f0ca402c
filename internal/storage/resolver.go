package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"lucidify/internal/domain"
)

// URLSigner issues time-limited GET URLs for bucket objects.
type URLSigner interface {
	SignURL(bucket, key string) (string, error)
}

// Options configures a Resolver.
type Options struct {
	// StaticBaseURL prefixes site-relative refs such as /videos/demo_fly.mp4.
	// Empty keeps them relative.
	StaticBaseURL string
	// DefaultBucket holds bare object keys.
	DefaultBucket string
	Signer        URLSigner
}

// Resolver turns video references into URLs a browser can play.
type Resolver struct {
	staticBase    string
	defaultBucket string
	signer        URLSigner
}

func NewResolver(opts Options) *Resolver {
	return &Resolver{
		staticBase:    strings.TrimRight(strings.TrimSpace(opts.StaticBaseURL), "/"),
		defaultBucket: strings.TrimSpace(opts.DefaultBucket),
		signer:        opts.Signer,
	}
}

// Resolve maps ref to a playable URL:
//
//	s3://bucket/key, gs://bucket/key  signed URL
//	http(s)://...                     unchanged
//	/path                             StaticBaseURL + path
//	key                               signed URL in DefaultBucket
//
// Failures wrap domain.ErrResolveReference.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrResolveReference, err)
	}
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", fmt.Errorf("%w: empty reference", domain.ErrResolveReference)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref, nil
	case strings.HasPrefix(ref, "s3://"), strings.HasPrefix(ref, "gs://"):
		bucket, key, err := splitBucketURI(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrResolveReference, err)
		}
		return r.sign(bucket, key)
	case strings.HasPrefix(ref, "/"):
		key, err := sanitizeKey(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrResolveReference, err)
		}
		if r.staticBase == "" {
			return "/" + key, nil
		}
		return r.staticBase + "/" + key, nil
	case strings.Contains(ref, "://"):
		return "", fmt.Errorf("%w: unsupported scheme in %q", domain.ErrResolveReference, ref)
	default:
		if r.defaultBucket == "" {
			return "", fmt.Errorf("%w: no bucket for key %q", domain.ErrResolveReference, ref)
		}
		key, err := sanitizeKey(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrResolveReference, err)
		}
		return r.sign(r.defaultBucket, key)
	}
}

func (r *Resolver) sign(bucket, key string) (string, error) {
	if r.signer == nil {
		return "", fmt.Errorf("%w: no signer configured for %s/%s", domain.ErrResolveReference, bucket, key)
	}
	signed, err := r.signer.SignURL(bucket, key)
	if err != nil {
		return "", fmt.Errorf("%w: sign %s/%s: %w", domain.ErrResolveReference, bucket, key, err)
	}
	return signed, nil
}

func splitBucketURI(ref string) (bucket, key string, err error) {
	_, rest, _ := strings.Cut(ref, "://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" {
		return "", "", fmt.Errorf("storage: malformed bucket uri %q", ref)
	}
	key, err = sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return bucket, key, nil
}

// sanitizeKey normalizes a key and prevents escaping the bucket root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	if key == ".." || strings.HasPrefix(key, "../") || strings.Contains(key, "/../") || strings.HasSuffix(key, "/..") {
		return "", errors.New("storage: invalid key")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == "" {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
