// Package gcsarchive writes received webhook payloads to a GCS bucket for
// audit. Archiving is best effort and runs off the request path through the
// job queue; a failed archive never fails the webhook response.
package gcsarchive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/gestorfin/backend/internal/jobs"
	"github.com/gestorfin/backend/internal/logger"
)

const uploadTimeout = 2 * time.Minute

// Archiver stores raw webhook payloads as GCS objects.
type Archiver struct {
	client *storage.Client
	bucket string
}

// NewArchiver creates an archiver with its own storage client. It assumes
// Application Default Credentials are configured.
func NewArchiver(ctx context.Context, bucket string) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewArchiver: create storage client: %w", err)
	}
	return NewArchiverWithClient(client, bucket), nil
}

// NewArchiverWithClient creates an archiver over an existing client. The
// caller keeps ownership of the client.
func NewArchiverWithClient(client *storage.Client, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// Close releases the underlying client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// objectName places payloads under webhooks/<event>/<timestamp>_<job>.json
// so retention policies can be applied per event type.
func objectName(job *jobs.ArchiveWebhookJob) string {
	return fmt.Sprintf("webhooks/%s/%s_%s.json",
		job.EventType,
		job.ReceivedAt.UTC().Format("20060102T150405Z"),
		job.JobID,
	)
}

// Archive uploads the job's payload. The object content is the raw request
// body, byte for byte, so the archived copy matches what the signature was
// verified against.
func (a *Archiver) Archive(ctx context.Context, job *jobs.ArchiveWebhookJob) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	obj := a.client.Bucket(a.bucket).Object(objectName(job))
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := io.Copy(w, bytes.NewReader(job.Payload)); err != nil {
		_ = w.Close()
		return fmt.Errorf("Archive: copy payload to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Archive: finalize upload: %w", err)
	}

	return nil
}

// Handler adapts the archiver to the job queue.
func (a *Archiver) Handler() jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		archiveJob, ok := job.(*jobs.ArchiveWebhookJob)
		if !ok {
			return fmt.Errorf("unexpected job type %s", job.GetType())
		}

		if err := a.Archive(ctx, archiveJob); err != nil {
			return err
		}

		log := logger.FromContext(ctx)
		log.Debug().
			Str("job_id", archiveJob.JobID).
			Str("event_type", archiveJob.EventType).
			Msg("Webhook payload archived")
		return nil
	}
}
