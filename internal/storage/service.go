package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

// Logical buckets.
const (
	BucketGrants      = "grants"
	BucketEventPics   = "event-pics"
	BucketPartnerPics = "partner-pics"
)

// Buckets lists every bucket the portal writes to.
var Buckets = []string{BucketGrants, BucketEventPics, BucketPartnerPics}

// FileKind restricts what an upload may contain.
type FileKind struct {
	Name    string
	MaxSize int64
	// extension -> content type
	Types map[string]string
}

var (
	Images = FileKind{
		Name:    "image",
		MaxSize: 5 * 1024 * 1024,
		Types: map[string]string{
			".jpg":  "image/jpeg",
			".jpeg": "image/jpeg",
			".png":  "image/png",
			".gif":  "image/gif",
			".webp": "image/webp",
		},
	}
	Spreadsheets = FileKind{
		Name:    "spreadsheet",
		MaxSize: 10 * 1024 * 1024,
		Types: map[string]string{
			".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			".csv":  "text/csv",
		},
	}
)

// Check validates a file name and size against the kind, reporting problems
// under the "file" field.
func (k FileKind) Check(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := k.Types[ext]; !ok {
		return validation.FieldErrors{"file": fmt.Sprintf("file type %q is not an allowed %s type", ext, k.Name)}
	}
	if size <= 0 {
		return validation.FieldErrors{"file": "file is empty"}
	}
	if size > k.MaxSize {
		return validation.FieldErrors{"file": fmt.Sprintf("file size exceeds %dMB limit", k.MaxSize/(1024*1024))}
	}
	return nil
}

// Object is a stored upload: Path is what gets persisted on the record.
type Object struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// URLFunc builds the public URL of bucket/key.
type URLFunc func(bucket, key string) string

type Service struct {
	stores map[string]Store
	urlFor URLFunc
}

func NewService(stores map[string]Store, urlFor URLFunc) *Service {
	return &Service{stores: stores, urlFor: urlFor}
}

// NewMemoryService backs every bucket with memory. Used by tests.
func NewMemoryService(baseURL string) *Service {
	stores := make(map[string]Store, len(Buckets))
	for _, b := range Buckets {
		stores[b] = NewMemoryStore()
	}
	return NewService(stores, LocalURL(baseURL))
}

// LocalURL serves objects through the /storage route of this backend.
func LocalURL(baseURL string) URLFunc {
	base := strings.TrimRight(baseURL, "/")
	return func(bucket, key string) string {
		return base + "/storage/" + bucket + "/" + key
	}
}

// Store returns the store behind bucket.
func (s *Service) Store(bucket string) (Store, bool) {
	st, ok := s.stores[bucket]
	return st, ok
}

func (s *Service) URL(bucket, key string) string {
	if key == "" {
		return ""
	}
	return s.urlFor(bucket, key)
}

// UploadFile validates and stores a multipart upload.
func (s *Service) UploadFile(ctx context.Context, bucket string, fh *multipart.FileHeader, kind FileKind) (Object, error) {
	if fh == nil {
		return Object{}, validation.FieldErrors{"file": "is required"}
	}
	if err := kind.Check(fh.Filename, fh.Size); err != nil {
		return Object{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Upload(ctx, bucket, fh.Filename, fh.Size, f, kind)
}

// Upload stores r under a fresh `<uuid><ext>` key.
func (s *Service) Upload(ctx context.Context, bucket, filename string, size int64, r io.Reader, kind FileKind) (Object, error) {
	if err := kind.Check(filename, size); err != nil {
		return Object{}, err
	}
	st, ok := s.stores[bucket]
	if !ok {
		return Object{}, fmt.Errorf("unknown bucket %q", bucket)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := uuid.New().String() + ext
	info, err := st.Put(ctx, key, io.LimitReader(r, kind.MaxSize+1), PutOptions{
		ContentType: kind.Types[ext],
		Metadata:    map[string]string{"original-name": filepath.Base(filename)},
	})
	if err != nil {
		return Object{}, fmt.Errorf("store %s/%s: %w", bucket, key, err)
	}
	if info.Size > kind.MaxSize {
		_, _ = st.Delete(ctx, key)
		return Object{}, validation.FieldErrors{"file": fmt.Sprintf("file size exceeds %dMB limit", kind.MaxSize/(1024*1024))}
	}

	log.Printf("📁 stored %s/%s (%d bytes)", bucket, key, info.Size)
	return Object{Bucket: bucket, Path: key, URL: s.URL(bucket, key), Size: info.Size}, nil
}

// File is a stored object as shown in admin listings.
type File struct {
	Object
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
}

// List returns the objects kept in bucket, newest first. Name is the original
// upload name when the driver keeps metadata, otherwise the key.
func (s *Service) List(ctx context.Context, bucket string) ([]File, error) {
	st, ok := s.stores[bucket]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	infos, err := st.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	files := make([]File, 0, len(infos))
	for _, info := range infos {
		name := info.Metadata["original-name"]
		if name == "" {
			name = info.Key
		}
		files = append(files, File{
			Object:       Object{Bucket: bucket, Path: info.Key, URL: s.URL(bucket, info.Key), Size: info.Size},
			Name:         name,
			LastModified: info.LastModified,
		})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].LastModified.After(files[j].LastModified) })
	return files, nil
}

// Delete removes the object at path. A missing object is not an error.
func (s *Service) Delete(ctx context.Context, bucket, path string) error {
	if path == "" {
		return nil
	}
	st, ok := s.stores[bucket]
	if !ok {
		return fmt.Errorf("unknown bucket %q", bucket)
	}
	if _, err := st.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, path, err)
	}
	return nil
}

// Replace removes the previous object after a successful upload. Failing to
// remove the old file only logs.
func (s *Service) Replace(ctx context.Context, bucket, oldPath string) {
	if err := s.Delete(ctx, bucket, oldPath); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️ could not remove replaced object %s/%s: %v", bucket, oldPath, err)
	}
}
