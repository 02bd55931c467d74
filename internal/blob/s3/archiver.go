package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedlens/fedlens/internal/aggregate"
	"github.com/fedlens/fedlens/internal/domain"
)

// Archiver uploads aggregation reports and aged snapshots to object storage.
//
// Deletion of archived snapshots from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to be executed after the
// archive has been verified.
type Archiver struct {
	writer    *Writer
	snapshots domain.SnapshotStore
}

// NewArchiver creates an Archiver. snapshots may be nil when only report
// archival is needed.
func NewArchiver(writer *Writer, snapshots domain.SnapshotStore) *Archiver {
	return &Archiver{
		writer:    writer,
		snapshots: snapshots,
	}
}

// ArchiveReport uploads one aggregation result as a timestamped JSON object
// under reports/YYYY/MM/DD/.
func (a *Archiver) ArchiveReport(ctx context.Context, result aggregate.Result, asOf time.Time) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("s3blob: marshal report: %w", err)
	}

	path := reportPath(asOf)
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive report: %w", err)
	}
	return nil
}

// ArchiveSnapshots queries all snapshots up to the cutoff, serializes them to
// JSONL, and uploads the file at archive/snapshots/YYYY-MM.jsonl. It returns
// the count of archived records.
func (a *Archiver) ArchiveSnapshots(ctx context.Context, before time.Time) (int64, error) {
	if a.snapshots == nil {
		return 0, domain.ErrStorageNotConfigured
	}

	snaps, err := a.snapshots.Find(ctx, domain.SnapshotFilter{To: before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots query: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(snaps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots marshal: %w", err)
	}

	path := fmt.Sprintf("archive/snapshots/%s.jsonl", before.Format("2006-01"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots upload: %w", err)
	}

	return int64(len(snaps)), nil
}

// reportPath builds the S3 key for an aggregation report.
//
//	reports/2025/01/15/143000.json
func reportPath(asOf time.Time) string {
	return fmt.Sprintf("reports/%s/%s.json", asOf.Format("2006/01/02"), asOf.Format("150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
