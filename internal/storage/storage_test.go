package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	info, err := st.Put(ctx, "a/logo.png", strings.NewReader("png-bytes"), PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("png-bytes")) {
		t.Fatalf("size = %d", info.Size)
	}
	if _, err := st.Put(ctx, "a/logo.png", strings.NewReader("again"), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("second put err = %v, want ErrExists", err)
	}

	got, body, err := st.Get(ctx, "a/logo.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(body)
	body.Close()
	if string(b) != "png-bytes" || got.ContentType != "image/png" {
		t.Fatalf("get = %q (%s)", b, got.ContentType)
	}

	if _, err := st.Put(ctx, "b.csv", strings.NewReader("x"), PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	list, err := st.List(ctx, "a/")
	if err != nil || len(list) != 1 || list[0].Key != "a/logo.png" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	deleted, err := st.Delete(ctx, "a/logo.png")
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	deleted, err = st.Delete(ctx, "a/logo.png")
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}
	if _, err := st.Head(ctx, "a/logo.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("head after delete err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFSStore(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	exerciseStore(t, st)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	for _, key := range []string{"../escape", "/abs", `a\b`, " "} {
		if _, err := st.Put(context.Background(), key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("put %q succeeded", key)
		}
	}
}

func TestUploadValidatesKind(t *testing.T) {
	svc := NewMemoryService("http://portal.test")
	ctx := context.Background()

	cases := []struct {
		name     string
		filename string
		size     int64
	}{
		{"wrong extension", "notes.txt", 10},
		{"empty", "photo.png", 0},
		{"too large", "photo.png", Images.MaxSize + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, BucketEventPics, tc.filename, tc.size, strings.NewReader("x"), Images)
			fe, ok := validation.AsFieldErrors(err)
			if !ok || fe["file"] == "" {
				t.Fatalf("err = %v, want file field error", err)
			}
		})
	}
}

func TestUploadRejectsUnderstatedSize(t *testing.T) {
	svc := NewMemoryService("http://portal.test")
	kind := FileKind{Name: "image", MaxSize: 4, Types: Images.Types}

	_, err := svc.Upload(context.Background(), BucketEventPics, "a.png", 2, bytes.NewReader([]byte("123456")), kind)
	if _, ok := validation.AsFieldErrors(err); !ok {
		t.Fatalf("err = %v, want size error", err)
	}
	st, _ := svc.Store(BucketEventPics)
	if list, _ := st.List(context.Background(), ""); len(list) != 0 {
		t.Fatalf("oversized object left behind: %+v", list)
	}
}

func TestUploadServeDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewMemoryService("http://portal.test/")
	ctx := context.Background()

	obj, err := svc.Upload(ctx, BucketPartnerPics, "Logo.PNG", 4, strings.NewReader("logo"), Images)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(obj.Path, ".png") {
		t.Fatalf("path = %q, want lower-cased extension", obj.Path)
	}
	if want := "http://portal.test/storage/partner-pics/" + obj.Path; obj.URL != want {
		t.Fatalf("url = %q, want %q", obj.URL, want)
	}

	r := gin.New()
	r.GET("/storage/:bucket/*path", NewHandler(svc).Serve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/partner-pics/"+obj.Path, nil))
	if w.Code != http.StatusOK || w.Body.String() != "logo" {
		t.Fatalf("serve = %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}

	if err := svc.Delete(ctx, BucketPartnerPics, obj.Path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/partner-pics/"+obj.Path, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("serve after delete = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/nope/x.png", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown bucket = %d", w.Code)
	}
}
