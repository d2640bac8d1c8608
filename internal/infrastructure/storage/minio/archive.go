package minio

import (
	"bytes"
	"context"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/turtacn/TreatyBoard/internal/domain/renewal"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

const (
	renewalsFolder  = "renewals"
	jsonContentType = "application/json"
)

// ArchivedReport describes one stored snapshot.
type ArchivedReport struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// ReportArchive writes renewal reports as JSON objects keyed
// renewals/<generated-on>/<uuid>.json under the configured prefix.
type ReportArchive struct {
	client  *MinIOClient
	logger  logging.Logger
	metrics *prometheus.ReportingMetrics
	newID   func() string
}

type ArchiveOption func(*ReportArchive)

func WithArchiveMetrics(m *prometheus.ReportingMetrics) ArchiveOption {
	return func(a *ReportArchive) { a.metrics = m }
}

func NewReportArchive(client *MinIOClient, log logging.Logger, opts ...ArchiveOption) *ReportArchive {
	if log == nil {
		log = logging.NewNopLogger()
	}
	a := &ReportArchive{
		client: client,
		logger: log.Named("report-archive"),
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ReportArchive) folder() string {
	return path.Join(strings.Trim(a.client.config.Prefix, "/"), renewalsFolder)
}

// ObjectKey builds the key a report generated on the given day is stored
// under.
func (a *ReportArchive) ObjectKey(generatedOn string, id string) string {
	return path.Join(a.folder(), generatedOn, id+".json")
}

// Archive stores the report and returns its object key.
func (a *ReportArchive) Archive(ctx context.Context, report renewal.Report) (key string, err error) {
	defer func() { prometheus.RecordArchive(a.metrics, err) }()

	if a.client.isClosed() {
		return "", ErrMinIOClientClosed
	}

	body, err := json.Marshal(report)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode renewal report")
	}

	generatedOn := report.GeneratedOn.String()
	if report.GeneratedOn.IsZero() {
		generatedOn = time.Now().UTC().Format(time.DateOnly)
	}
	key = a.ObjectKey(generatedOn, a.newID())

	opts := minio.PutObjectOptions{
		ContentType: jsonContentType,
		UserMetadata: map[string]string{
			"generated-on": generatedOn,
			"records":      strconv.Itoa(len(report.Records)),
		},
	}
	info, err := a.client.API().PutObject(ctx, a.client.Bucket(), key, bytes.NewReader(body), int64(len(body)), opts)
	if err != nil {
		a.logger.Error("renewal report upload failed", logging.String("key", key), logging.Err(err))
		return "", errors.Wrap(err, errors.ErrCodeArchiveFailed, "upload failed").WithDetail(key)
	}

	a.logger.Info("renewal report archived",
		logging.String("bucket", a.client.Bucket()),
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.Int("records", len(report.Records)))
	return key, nil
}

// List returns archived snapshots, optionally restricted to one generation
// day (YYYY-MM-DD), in key order.
func (a *ReportArchive) List(ctx context.Context, generatedOn string) ([]ArchivedReport, error) {
	if a.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	prefix := a.folder() + "/"
	if generatedOn != "" {
		prefix += generatedOn + "/"
	}

	var out []ArchivedReport
	for obj := range a.client.API().ListObjects(ctx, a.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeArchiveFailed, "failed to list archived reports")
		}
		out = append(out, ArchivedReport{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// Delete removes one snapshot.
func (a *ReportArchive) Delete(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, a.folder()+"/") {
		return errors.New(errors.ErrCodeValidation, "key is outside the renewal archive").WithDetail(key)
	}
	if err := a.client.API().RemoveObject(ctx, a.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveFailed, "failed to delete archived report").WithDetail(key)
	}
	return nil
}
