package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/jobingest/internal/record"
)

// Config controls remote feed retrieval.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// ObjectOpener opens objects in a bucket.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// GCSOpener reads objects from Google Cloud Storage.
type GCSOpener struct {
	Client *storage.Client
}

// Open returns a reader for gs://bucket/object.
func (o GCSOpener) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := o.Client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	return r, nil
}

// Reader opens feed locations: local paths, file:// and http(s):// URLs via
// colly, and gs:// objects.
type Reader struct {
	cfg       Config
	objects   ObjectOpener
	collector *colly.Collector
}

// NewReader builds a Reader. objects may be nil when gs:// locations are not used.
func NewReader(cfg Config, objects ObjectOpener) *Reader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(transport)
	c.MaxBodySize = 0
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Reader{cfg: cfg, objects: objects, collector: c}
}

// Records opens location and decodes its jobs.
func (r *Reader) Records(ctx context.Context, location string) ([]record.Record, error) {
	rc, err := r.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	recs, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return recs, nil
}

// Open returns the raw feed content at location.
func (r *Reader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "gs://"):
		return r.openObject(ctx, location)
	case strings.HasPrefix(location, "http://"),
		strings.HasPrefix(location, "https://"),
		strings.HasPrefix(location, "file://"):
		body, err := r.visit(ctx, location)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		return f, nil
	}
}

func (r *Reader) openObject(ctx context.Context, location string) (io.ReadCloser, error) {
	if r.objects == nil {
		return nil, fmt.Errorf("no object store configured for %s", location)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(location, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return nil, fmt.Errorf("invalid object location %q", location)
	}
	return r.objects.Open(ctx, bucket, object)
}

func (r *Reader) visit(ctx context.Context, location string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := r.collector.Clone()
	collector.OnResponse(func(resp *colly.Response) {
		body = append([]byte(nil), resp.Body...)
	})
	collector.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", resp.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(location)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s canceled: %w", location, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, fetchErr)
		}
		return body, nil
	}
}
