// Package recording locates call recordings after a session ends. Lookup is
// best effort: a missing or unreachable recording never fails call
// finalization, it only leaves the recording reference empty.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/shubhamINT/api-livekit/internal/config"
	"github.com/shubhamINT/api-livekit/internal/resilience"
	"github.com/shubhamINT/api-livekit/internal/transport"
)

const lookupTimeout = 5 * time.Second

// EgressLister is the slice of the LiveKit API client the resolver uses.
// *transport.Client satisfies it.
type EgressLister interface {
	ListEgress(ctx context.Context, room string) ([]transport.EgressInfo, error)
}

// ObjectHeader is the slice of the S3 API the resolver uses.
// *s3.Client satisfies it.
type ObjectHeader interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds an S3 client from the recording configuration,
// honouring static credentials and custom endpoints when set.
func NewS3Client(ctx context.Context, cfg config.RecordingConfig) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("recording: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// Resolver locates the recording produced for a finished call. It first asks
// the LiveKit egress API, then falls back to probing the conventional
// date-foldered S3 key. Both lookups run behind a shared circuit breaker so
// a failing backend degrades to "no recording" instead of stalling every
// finalization.
type Resolver struct {
	lister   EgressLister
	objects  ObjectHeader
	breaker  *resilience.CircuitBreaker
	bucket   string
	region   string
	prefix   string
	endpoint string
}

// NewResolver creates a Resolver. objects may be nil when no recording
// bucket is configured; the S3 fallback is then skipped.
func NewResolver(lister EgressLister, objects ObjectHeader, cfg config.RecordingConfig) *Resolver {
	return &Resolver{
		lister:  lister,
		objects: objects,
		breaker: resilience.New(resilience.Config{
			Name:        "recording-lookup",
			MaxFailures: 3,
		}),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		prefix:   cfg.Prefix,
		endpoint: cfg.Endpoint,
	}
}

// Resolve returns the recording reference for roomName, or ("", false) when
// no recording could be located. endedAt selects the date folder probed in
// the S3 fallback.
func (r *Resolver) Resolve(ctx context.Context, roomName string, endedAt time.Time) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var path string
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		p, err := r.lookup(ctx, roomName, endedAt)
		if err != nil {
			return err
		}
		path = p
		return nil
	})
	if err != nil {
		slog.Warn("recording lookup failed",
			"room", roomName,
			"error", err)
		return "", false
	}
	if path == "" {
		return "", false
	}
	return path, true
}

func (r *Resolver) lookup(ctx context.Context, roomName string, endedAt time.Time) (string, error) {
	items, err := r.lister.ListEgress(ctx, roomName)
	if err != nil {
		return "", fmt.Errorf("recording: list egress: %w", err)
	}
	for _, item := range items {
		if item.Status != "EGRESS_COMPLETE" {
			continue
		}
		for _, f := range item.FileResults {
			if f.Location != "" {
				return f.Location, nil
			}
		}
	}

	if r.objects == nil || r.bucket == "" {
		return "", nil
	}

	key := r.objectKey(roomName, endedAt)
	_, err = r.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// A missing object is the normal "no recording" case; only
		// transport-level failures should trip the breaker.
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("recording: head object %q: %w", key, err)
	}
	return r.objectURL(key), nil
}

// objectKey builds the conventional date-foldered key written by the egress
// pipeline: [prefix/]YYYY-MM-DD/room.ogg.
func (r *Resolver) objectKey(roomName string, endedAt time.Time) string {
	folder := endedAt.UTC().Format("2006-01-02")
	key := folder + "/" + roomName + ".ogg"
	if r.prefix != "" {
		key = strings.TrimSuffix(r.prefix, "/") + "/" + key
	}
	return key
}

func (r *Resolver) objectURL(key string) string {
	if r.endpoint != "" {
		return strings.TrimSuffix(r.endpoint, "/") + "/" + r.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", r.bucket, r.region, key)
}

// isNotFound reports whether err is an S3 404 for a missing object.
func isNotFound(err error) bool {
	var nf *types.NotFound
	return errors.As(err, &nf)
}
