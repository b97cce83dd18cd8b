package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Resolver turns a catalog file path into a URL the download engine can GET.
type Resolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// DirectResolver accepts only absolute http(s) URLs.
type DirectResolver struct{}

func (DirectResolver) Resolve(_ context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if isHTTPURL(path) {
		return path, nil
	}
	return "", fmt.Errorf("%w: %q is not a URL", ErrUnresolvable, path)
}

// FirebaseStorageResolver builds public Firebase Storage download URLs.
// Paths may be bucket-relative ("courses/CIT101.pdf") or gs:// URIs.
type FirebaseStorageResolver struct {
	Bucket  string
	BaseURL string // defaults to https://firebasestorage.googleapis.com
}

const firebaseStorageBaseURL = "https://firebasestorage.googleapis.com"

func (r FirebaseStorageResolver) Resolve(_ context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if isHTTPURL(path) {
		return path, nil
	}

	bucket, object, err := splitObjectPath(r.Bucket, path)
	if err != nil {
		return "", err
	}

	base := r.BaseURL
	if base == "" {
		base = firebaseStorageBaseURL
	}
	return fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media",
		strings.TrimRight(base, "/"), bucket, url.PathEscape(object)), nil
}

// GCSSignedResolver issues short-lived V4 signed URLs for objects in a
// private Cloud Storage bucket.
type GCSSignedResolver struct {
	client *storage.Client
	bucket string
	expiry time.Duration
}

func NewGCSSignedResolver(client *storage.Client, bucket string, expiry time.Duration) *GCSSignedResolver {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &GCSSignedResolver{client: client, bucket: bucket, expiry: expiry}
}

func (r *GCSSignedResolver) Resolve(_ context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if isHTTPURL(path) {
		return path, nil
	}

	bucket, object, err := splitObjectPath(r.bucket, path)
	if err != nil {
		return "", err
	}

	signed, err := r.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(r.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("%w: sign %s: %w", ErrUnresolvable, object, err)
	}
	return signed, nil
}

// splitObjectPath accepts "gs://bucket/object" or a bucket-relative object
// name resolved against defaultBucket.
func splitObjectPath(defaultBucket, path string) (bucket, object string, err error) {
	if rest, ok := strings.CutPrefix(path, "gs://"); ok {
		bucket, object, _ = strings.Cut(rest, "/")
	} else {
		bucket, object = defaultBucket, strings.TrimPrefix(path, "/")
	}
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnresolvable, path)
	}
	return bucket, object, nil
}
