package cache_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"order-etl/internal/cache"
)

func exerciseStore(t *testing.T, s cache.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, cache.DatasetKey("orders")); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, cache.DatasetKey("orders"), []byte("order_id\n1\n")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, cache.DatasetKey("orders"), []byte("order_id\n2\n")); err != nil {
		t.Fatalf("Put(overwrite) error = %v", err)
	}

	got, err := s.Get(ctx, cache.DatasetKey("orders"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "order_id\n2\n" {
		t.Errorf("Get() = %q, want the overwritten payload", got)
	}
}

func TestFS(t *testing.T) {
	s, err := cache.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)

	if err := s.Put(context.Background(), "../escape.csv", nil); err == nil {
		t.Error("expected traversal key to be rejected")
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, cache.NewMemory())
}

func TestS3(t *testing.T) {
	exerciseStore(t, newMockS3("etl-cache"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := cache.Open(ctx, cache.Config{Driver: "fs", Dir: t.TempDir()})
	if err != nil || s.Driver() != cache.DriverFS {
		t.Fatalf("Open(fs) = %v, %v", s, err)
	}
	none, err := cache.Open(ctx, cache.Config{Driver: "none"})
	if err != nil || none != nil {
		t.Errorf("Open(none) = %v, %v", none, err)
	}
	if _, err := cache.Open(ctx, cache.Config{Driver: "s3"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
	if _, err := cache.Open(ctx, cache.Config{Driver: "ftp"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

// newMockS3 returns a store whose client talks to an in-memory fake
// handling GetObject and PutObject.
func newMockS3(prefix string) *cache.S3 {
	rt := &mockRoundTripper{state: make(map[string][]byte)}
	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:                 &http.Client{Transport: rt},
		UsePathStyle:               true,
		BaseEndpoint:               aws.String("https://mock.s3.local"),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})
	return cache.NewS3WithClient(client, "mock-bucket", prefix)
}

type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string][]byte
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// path style: /bucket/key
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.state[key] = body
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodGet:
		if body, ok := m.state[key]; ok {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(body))},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}}, nil
		}
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

// decodeChunked decodes a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	s := string(b)
	i := strings.Index(s, "\r\n")
	if i <= 0 {
		return nil, false
	}
	var size int
	if _, err := fmt.Sscanf(s[:i], "%x", &size); err != nil {
		return nil, false
	}
	rest := s[i+2:]
	if len(rest) < size+2 || !strings.HasPrefix(rest[size+2:], "0\r\n") {
		return nil, false
	}
	return []byte(rest[:size]), true
}
