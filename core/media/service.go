package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type: only jpeg, png, gif, webp and svg images are accepted")
	ErrEmptyFile       = errors.New("file is empty")

	NowFunc = time.Now // mockable

	extensions = map[string]string{
		"image/jpeg":    ".jpg",
		"image/png":     ".png",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}
)

// Storage is where uploaded files end up.
type Storage interface {
	// Put stores body under key and returns its public URL.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Upload struct {
	Filename    string
	ContentType string // as declared by the client
	Size        int64
	Body        io.Reader
}

type File struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service struct {
	store   Storage
	maxSize int64
}

func NewService(store Storage, maxSize int64) *Service {
	return &Service{store: store, maxSize: maxSize}
}

func (svc *Service) MaxSize() int64 { return svc.maxSize }

// Upload checks that up is an image within the size limit and stores it under a random key.
func (svc *Service) Upload(ctx context.Context, up Upload) (File, error) {
	if up.Size == 0 {
		return File{}, core.NewFieldError("file", ErrEmptyFile)
	}
	if svc.maxSize > 0 && up.Size > svc.maxSize {
		return File{}, core.NewFieldError("file", fmt.Errorf("file is too large: the limit is %d bytes", svc.maxSize))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return File{}, errors.Wrap(err, "reading upload")
	}
	head = head[:n]

	ctype := detectType(head, up.ContentType, up.Filename)
	ext, ok := extensions[ctype]
	if !ok {
		return File{}, core.NewFieldError("file", ErrUnsupportedType)
	}

	key := NewKey(NowFunc().UTC(), ext)
	url, err := svc.store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), up.Body), up.Size, ctype)
	if err != nil {
		return File{}, errors.Wrap(err, "storing upload")
	}
	return File{Key: key, URL: url, ContentType: ctype, Size: up.Size}, nil
}

func (svc *Service) Delete(ctx context.Context, key string) error {
	return errors.Wrap(svc.store.Delete(ctx, key), "deleting media")
}

// NewKey returns a random "yyyy/mm/<uuid><ext>" key.
func NewKey(t time.Time, ext string) string {
	return path.Join(t.Format("2006"), t.Format("01"), uuid.NewString()+ext)
}

// detectType sniffs the content; SVG is text, so it is trusted from the declared type or extension
// only when the content looks like XML.
func detectType(head []byte, declared, filename string) string {
	sniffed := http.DetectContentType(head)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if _, ok := extensions[sniffed]; ok {
		return sniffed
	}
	isSVG := strings.HasPrefix(declared, "image/svg+xml") || strings.EqualFold(path.Ext(filename), ".svg")
	if isSVG && (sniffed == "text/xml" || sniffed == "text/plain") && bytes.Contains(bytes.ToLower(head), []byte("<svg")) {
		return "image/svg+xml"
	}
	return sniffed
}
