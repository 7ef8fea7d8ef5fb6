package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads.
const minPartSize int64 = 5 * 1024 * 1024

// Archiver uploads matched-order snapshots for long-term storage. Single
// snapshots land under orders/matched/YYYY/MM/DD/{orderID}.json; daily
// batches are JSONL under orders/batch/. It satisfies the trading client's
// archiver contract.
type Archiver struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
		now:    time.Now,
	}
}

// ArchiveMatched uploads one matched-order snapshot as a JSON object.
func (a *Archiver) ArchiveMatched(ctx context.Context, snap domain.OrderSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("s3blob: marshal snapshot %s: %w", snap.ID, err)
	}

	key := fmt.Sprintf("orders/matched/%s/%s.json", a.now().UTC().Format("2006/01/02"), snap.ID)
	return a.put(ctx, key, bytes.NewReader(body), "application/json")
}

// ArchiveBatch uploads a set of snapshots as one JSONL object keyed by day.
// Large batches go through the multipart uploader.
func (a *Archiver) ArchiveBatch(ctx context.Context, day time.Time, snaps []domain.OrderSnapshot) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range snaps {
		if err := enc.Encode(&snaps[i]); err != nil {
			return fmt.Errorf("s3blob: encode snapshot %s: %w", snaps[i].ID, err)
		}
	}

	key := BatchKey(day)
	if int64(buf.Len()) >= minPartSize {
		return a.putMultipart(ctx, key, bytes.NewReader(buf.Bytes()))
	}
	return a.put(ctx, key, bytes.NewReader(buf.Bytes()), "application/x-ndjson")
}

// BatchKey returns the object key for a day's JSONL batch.
func BatchKey(day time.Time) string {
	return fmt.Sprintf("orders/batch/%s.jsonl", day.UTC().Format("2006-01-02"))
}

// Exists reports whether an archive object is already present, so a batch
// run can skip days it has covered.
func (a *Archiver) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3blob: head %s: %w", key, err)
	}
	return true, nil
}

// Fetch retrieves an archived object. The caller closes the returned body.
func (a *Archiver) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.Errorf(domain.CodeNotFound, "no archive object at %s", key)
		}
		return nil, fmt.Errorf("s3blob: get %s: %w", key, err)
	}
	return out.Body, nil
}

func (a *Archiver) put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", key, err)
	}
	return nil
}

func (a *Archiver) putMultipart(ctx context.Context, key string, body io.Reader) error {
	uploader := manager.NewUploader(a.client, func(u *manager.Uploader) {
		u.PartSize = minPartSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

// isNotFound returns true when the error indicates the object does not
// exist. HeadObject returns a generic 404 rather than NoSuchKey, and some
// S3-compatible providers only set the HTTP status.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}
