// Package export writes query results to object storage as JSON lines.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gogotex/people/internal/person"
	"github.com/gogotex/people/pkg/logger"
)

const contentType = "application/x-ndjson"

// Uploader is the object store surface the exporter needs; *storage.MinIOStorage satisfies it.
type Uploader interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Querier runs a chained query; service.Service satisfies it.
type Querier interface {
	Exec(ctx context.Context, q *person.Query) ([]*person.Person, error)
}

// Result describes one finished export.
type Result struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type Exporter struct {
	src     Querier
	dst     Uploader
	linkTTL time.Duration
	now     func() time.Time
}

// New returns an Exporter whose download links stay valid for linkTTL (default 15m).
func New(src Querier, dst Uploader, linkTTL time.Duration) *Exporter {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &Exporter{src: src, dst: dst, linkTTL: linkTTL, now: time.Now}
}

// WriteJSONLines writes one JSON object per line.
func WriteJSONLines(w io.Writer, people []*person.Person) error {
	enc := json.NewEncoder(w)
	for _, p := range people {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// Export runs q, uploads the result under exports/people-<UTC timestamp>.jsonl
// and returns the key with a presigned download URL.
func (e *Exporter) Export(ctx context.Context, q *person.Query) (Result, error) {
	people, err := e.src.Exec(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("export query: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteJSONLines(&buf, people); err != nil {
		return Result{}, fmt.Errorf("export encode: %w", err)
	}
	key := fmt.Sprintf("exports/people-%s.jsonl", e.now().UTC().Format("20060102T150405.000000000"))
	if err := e.dst.UploadFile(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), contentType); err != nil {
		return Result{}, fmt.Errorf("export upload %s: %w", key, err)
	}
	link, err := e.dst.GetPresignedURL(ctx, key, e.linkTTL)
	if err != nil {
		return Result{}, fmt.Errorf("export presign %s: %w", key, err)
	}
	logger.Infof("exported %d people to %s", len(people), key)
	return Result{Key: key, URL: link, Count: len(people)}, nil
}
