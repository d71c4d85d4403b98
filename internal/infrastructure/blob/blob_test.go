package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"club-overview-console/internal/domain"
	"club-overview-console/pkg/circuit"
)

// fakeS3 serves the HEAD/PUT subset of S3 the store uses.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]Object
	fail    bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}, Request: req}, nil
	}
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	resp := func(code int, h http.Header) *http.Response {
		if h == nil {
			h = http.Header{}
		}
		return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: h, Request: req}
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = Object{Data: body, ContentType: req.Header.Get("Content-Type")}
		return resp(http.StatusOK, http.Header{"Etag": {`"etag"`}}), nil
	case http.MethodHead:
		if key == "" {
			return resp(http.StatusOK, nil), nil
		}
		if o, ok := f.objects[key]; ok {
			return resp(http.StatusOK, http.Header{
				"Content-Type":   {o.ContentType},
				"Content-Length": {"0"},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}), nil
		}
		return resp(http.StatusNotFound, nil), nil
	}
	return resp(http.StatusNotImplemented, nil), nil
}

// decodeChunked unwraps a single-chunk aws-chunked body: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.SplitN(string(b), "\r\n", 3)
	if len(parts) < 3 || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string]Object{}}
	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:     "club-media",
		Region:     "eu-north-1",
		Endpoint:   "https://s3.test.local",
		AccessKey:  "AKIA",
		SecretKey:  "SECRET",
		PathStyle:  true,
		PresignTTL: time.Minute,
		HTTPClient: &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return s, fake
}

func TestS3Store_UploadAndPresign(t *testing.T) {
	s, fake := newFakeS3Store(t)
	ctx := context.Background()
	path := "club_images/vega_0/cover_image.webp"

	if err := s.Upload(ctx, path, []byte("webp-bytes"), "image/webp"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	got := fake.objects[path]
	if string(got.Data) != "webp-bytes" || got.ContentType != "image/webp" {
		t.Fatalf("stored %+v", got)
	}

	url, err := s.GetDownloadURL(ctx, path)
	if err != nil {
		t.Fatalf("GetDownloadURL: %v", err)
	}
	if !strings.Contains(url, "/club-media/"+path) || !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("url = %s", url)
	}

	if _, err := s.GetDownloadURL(ctx, "club_logos/missing.webp"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing object err = %v, want ErrNotFound", err)
	}
}

func TestFSStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, "/blobs")
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()
	path := "club_images/vega_0/mood_images_stock/stock_mood_image_0.webp"

	if _, err := s.GetDownloadURL(ctx, path); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("before upload err = %v", err)
	}
	for _, body := range []string{"v1", "v2"} {
		if err := s.Upload(ctx, path, []byte(body), "image/webp"); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil || string(b) != "v2" {
		t.Fatalf("file = %q, %v", b, err)
	}
	url, err := s.GetDownloadURL(ctx, path)
	if err != nil || url != "/blobs/"+path {
		t.Fatalf("url = %q, %v", url, err)
	}

	for _, bad := range []string{"", "/etc/passwd", "../outside", "a/../../b"} {
		if err := s.Upload(ctx, bad, []byte("x"), ""); err == nil {
			t.Errorf("Upload(%q) accepted", bad)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	data := []byte("pdf")
	if err := m.Upload(ctx, "club_images/vega_0/barcard.pdf", data, "application/pdf"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	data[0] = 'X'
	o, ok := m.Object("club_images/vega_0/barcard.pdf")
	if !ok || string(o.Data) != "pdf" {
		t.Fatalf("object = %+v, %v", o, ok)
	}
	if _, err := m.GetDownloadURL(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

type flakyStore struct {
	*MemoryStore
	uploadErr error
}

func (f *flakyStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	return f.MemoryStore.Upload(ctx, path, data, contentType)
}

func TestBreakerStore(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), uploadErr: errors.New("503")}
	br := circuit.New(circuit.Config{Name: "blob-test", MaxConsecFailures: 2, OpenFor: time.Hour}, nil)
	s := NewBreakerStore(inner, br)
	ctx := context.Background()

	// misses must not open the breaker
	for i := 0; i < 5; i++ {
		if _, err := s.GetDownloadURL(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if s.State() != circuit.Closed {
		t.Fatalf("state after misses = %v", s.State())
	}

	for i := 0; i < 2; i++ {
		_ = s.Upload(ctx, "a.webp", nil, "image/webp")
	}
	if err := s.Upload(ctx, "a.webp", nil, "image/webp"); !errors.Is(err, circuit.ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
}
