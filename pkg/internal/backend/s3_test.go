package backend

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/khaznati/chunkvault/pkg/configs"
)

// fakeS3 模拟 S3 的最小子集：bucket 探测与对象写入.
type fakeS3 struct {
	headBucket atomic.Int64
	puts       atomic.Int64
}

func (f *fakeS3) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			f.headBucket.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			f.puts.Add(1)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
}

func newTestS3Backend(t *testing.T, fake *fakeS3) *S3Backend {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	return NewS3Backend(configs.S3Config{
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "chunkvault-test",
		Region:          "us-east-1",
		KeyPrefix:       "chunks",
	})
}

// 首次建连与并发 Put 同时进行，客户端指针只能原子发布，
// singleflight 保证 bucket 只探测一次.
func TestS3ConnectConcurrent(t *testing.T) {
	fake := &fakeS3{}
	b := newTestS3Backend(t, fake)

	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers*2)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := b.Connect(t.Context()); err != nil {
				errs <- fmt.Errorf("connect: %w", err)
			}
		}()

		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := b.Put(t.Context(), []byte(fmt.Sprintf("chunk-%d", i))); err != nil {
				errs <- fmt.Errorf("put: %w", err)
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent connect/put: %v", err)
	}

	if got := fake.headBucket.Load(); got != 1 {
		t.Errorf("bucket checked %d times, want 1", got)
	}

	if got := fake.puts.Load(); got != workers {
		t.Errorf("backend received %d puts, want %d", got, workers)
	}

	if b.cli.Load() == nil {
		t.Fatal("client not established after connect")
	}
}
