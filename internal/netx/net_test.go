package netx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadToPresignedURL(t *testing.T) {
	file := []byte("matricula,name\nU1,Ana\n")
	ctx := context.Background()

	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody []byte
		var gotCT string
		var gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			gotBody = body
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		err := UploadToPresignedURL(ctx, ts.Client(), ts.URL+"/reports/x.zip?X-Amz-Signature=abc", "application/zip", file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodPut {
			t.Fatalf("method = %q, want PUT", gotMethod)
		}
		if gotCT != "application/zip" {
			t.Fatalf("Content-Type = %q, want application/zip", gotCT)
		}
		if !bytes.Equal(gotBody, file) {
			t.Fatalf("body = %q, want %q", string(gotBody), string(file))
		}
	})

	t.Run("non-2xx -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer ts.Close()

		err := UploadToPresignedURL(ctx, nil, ts.URL, "application/zip", file)
		if err == nil || !strings.Contains(err.Error(), "SignatureDoesNotMatch") {
			t.Fatalf("expected upload failure with body, got %v", err)
		}
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := UploadToPresignedURL(ctx, nil, ts.URL, "application/zip", file)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if strings.Contains(err.Error(), "upload failed") {
			t.Fatalf("got wrong kind of error: %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer ts.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := UploadToPresignedURL(cctx, nil, ts.URL, "application/zip", file)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
