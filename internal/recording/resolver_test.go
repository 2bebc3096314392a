package recording

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/shubhamINT/api-livekit/internal/config"
	"github.com/shubhamINT/api-livekit/internal/transport"
)

type mockLister struct {
	items []transport.EgressInfo
	err   error
	calls int
}

func (m *mockLister) ListEgress(ctx context.Context, room string) ([]transport.EgressInfo, error) {
	m.calls++
	return m.items, m.err
}

type mockObjects struct {
	err   error
	keys  []string
	calls int
}

func (m *mockObjects) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.calls++
	if params.Key != nil {
		m.keys = append(m.keys, *params.Key)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &s3.HeadObjectOutput{}, nil
}

func completedEgress(location string) []transport.EgressInfo {
	return []transport.EgressInfo{{
		EgressID: "EG_1",
		RoomName: "asst-1_ab12cd34",
		Status:   "EGRESS_COMPLETE",
		FileResults: []transport.EgressFileResult{
			{Filename: "asst-1_ab12cd34.ogg", Location: location},
		},
	}}
}

var testEnded = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

func TestResolvePrefersEgressLocation(t *testing.T) {
	t.Parallel()

	lister := &mockLister{items: completedEgress("https://bucket.s3.amazonaws.com/2026-03-01/asst-1_ab12cd34.ogg")}
	objects := &mockObjects{}
	r := NewResolver(lister, objects, config.RecordingConfig{Bucket: "bucket", Region: "ap-south-1"})

	path, ok := r.Resolve(context.Background(), "asst-1_ab12cd34", testEnded)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if path != "https://bucket.s3.amazonaws.com/2026-03-01/asst-1_ab12cd34.ogg" {
		t.Errorf("path = %q", path)
	}
	if objects.calls != 0 {
		t.Errorf("S3 probed %d times despite egress hit, want 0", objects.calls)
	}
}

func TestResolveFallsBackToS3(t *testing.T) {
	t.Parallel()

	lister := &mockLister{} // no egress records
	objects := &mockObjects{}
	r := NewResolver(lister, objects, config.RecordingConfig{
		Bucket: "call-recordings",
		Region: "ap-south-1",
		Prefix: "recordings",
	})

	path, ok := r.Resolve(context.Background(), "asst-1_ab12cd34", testEnded)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	wantKey := "recordings/2026-03-01/asst-1_ab12cd34.ogg"
	if len(objects.keys) != 1 || objects.keys[0] != wantKey {
		t.Errorf("probed keys = %v, want [%s]", objects.keys, wantKey)
	}
	want := "https://call-recordings.s3.ap-south-1.amazonaws.com/" + wantKey
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestResolveMissingObjectIsNotFailure(t *testing.T) {
	t.Parallel()

	lister := &mockLister{}
	objects := &mockObjects{err: &s3types.NotFound{}}
	r := NewResolver(lister, objects, config.RecordingConfig{Bucket: "bucket", Region: "ap-south-1"})

	// A missing recording is absence, not an error: repeated calls must
	// not trip the breaker.
	for i := 0; i < 10; i++ {
		if _, ok := r.Resolve(context.Background(), "room", testEnded); ok {
			t.Fatal("Resolve() ok = true, want false")
		}
	}
	if objects.calls != 10 {
		t.Errorf("HeadObject called %d times, want 10 (breaker must stay closed)", objects.calls)
	}
}

func TestResolveBreakerOpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	lister := &mockLister{err: errors.New("egress api unreachable")}
	r := NewResolver(lister, nil, config.RecordingConfig{})

	for i := 0; i < 10; i++ {
		if _, ok := r.Resolve(context.Background(), "room", testEnded); ok {
			t.Fatal("Resolve() ok = true, want false")
		}
	}
	// Breaker opens after 3 consecutive failures; later calls are
	// short-circuited without touching the backend.
	if lister.calls >= 10 {
		t.Errorf("ListEgress called %d times, want fewer (breaker should open)", lister.calls)
	}
}

func TestResolveEgressOnlyWithoutS3(t *testing.T) {
	t.Parallel()

	// S3-less deployments still resolve recordings through the egress API.
	lister := &mockLister{items: completedEgress("https://cdn.example.com/asst-1_ab12cd34.ogg")}
	r := NewResolver(lister, nil, config.RecordingConfig{})

	path, ok := r.Resolve(context.Background(), "asst-1_ab12cd34", testEnded)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if path != "https://cdn.example.com/asst-1_ab12cd34.ogg" {
		t.Errorf("path = %q", path)
	}
}

func TestResolveNoBucketConfigured(t *testing.T) {
	t.Parallel()

	lister := &mockLister{}
	r := NewResolver(lister, nil, config.RecordingConfig{})

	if path, ok := r.Resolve(context.Background(), "room", testEnded); ok || path != "" {
		t.Errorf("Resolve() = (%q, %v), want empty and false", path, ok)
	}
}

func TestObjectKeyEndpointURL(t *testing.T) {
	t.Parallel()

	lister := &mockLister{}
	objects := &mockObjects{}
	r := NewResolver(lister, objects, config.RecordingConfig{
		Bucket:   "recordings",
		Endpoint: "http://minio.local:9000/",
	})

	path, ok := r.Resolve(context.Background(), "room-1", testEnded)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	want := "http://minio.local:9000/recordings/2026-03-01/room-1.ogg"
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}
