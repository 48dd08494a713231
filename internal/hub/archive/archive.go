// Package archive persists the vehicle-update event stream to an
// S3-compatible object store for offline analysis. It is an ordinary fanout
// subscriber: archive trouble never touches the gateways or other sessions.
package archive

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/bus"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/internal/pkg/metrics"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
	"github.com/fleetgrid-io/fleetgrid/pkg/options"
)

const (
	// maxBatch bounds how many events accumulate before a flush.
	maxBatch = 500

	// flushInterval bounds how long a partial batch may sit in memory.
	flushInterval = 30 * time.Second
)

// Archiver batches fanout events into JSON-lines objects.
type Archiver struct {
	client *minio.Client
	bucket string
	fanout *bus.Bus
}

// NewArchiver creates an S3-backed archiver.
func NewArchiver(opts *options.S3Options, fanout *bus.Bus) (*Archiver, error) {
	minioOpts := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.UseSSL {
		minioOpts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
		}
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Archiver{
		client: client,
		bucket: opts.BucketName,
		fanout: fanout,
	}, nil
}

// Start verifies the bucket, then consumes fanout events until ctx is
// canceled, flushing batches on size or age. The partial batch is flushed on
// shutdown.
func (a *Archiver) Start(ctx context.Context) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	sess := a.fanout.Subscribe()
	defer a.fanout.Unsubscribe(sess)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch bytes.Buffer
	var batched int

	flush := func(flushCtx context.Context) {
		if batched == 0 {
			return
		}
		if err := a.putBatch(flushCtx, batch.Bytes()); err != nil {
			metrics.ArchiveFlushes.WithLabelValues("failed").Inc()
			log.Error(err, "Failed to flush event batch", "events", batched)
		} else {
			metrics.ArchiveFlushes.WithLabelValues("ok").Inc()
			log.Debug("Flushed event batch", "events", batched)
		}
		batch.Reset()
		batched = 0
	}

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(shutdownCtx)
			cancel()
			return nil

		case <-ticker.C:
			flush(ctx)

		case update, ok := <-sess.Updates():
			if !ok {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(shutdownCtx)
				cancel()
				return nil
			}
			a.appendEvent(&batch, update)
			batched++
			if batched >= maxBatch {
				flush(ctx)
			}
		}
	}
}

func (a *Archiver) appendEvent(batch *bytes.Buffer, update *model.VehicleUpdate) {
	line, err := json.Marshal(update)
	if err != nil {
		log.Error(err, "Failed to encode event for archive", "vehicle", update.Vehicle.ID)
		return
	}
	batch.Write(line)
	batch.WriteByte('\n')
}

func (a *Archiver) putBatch(ctx context.Context, data []byte) error {
	key := fmt.Sprintf("updates/%s.jsonl", time.Now().UTC().Format("2006/01/02/150405.000000000"))

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return fmt.Errorf("put archive object %s: %w", key, err)
	}
	return nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", a.bucket)
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}
