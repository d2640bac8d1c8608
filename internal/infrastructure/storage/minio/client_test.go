package minio

import (
	"context"
	stderrors "errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// MockMinIOAPI records calls made against the object store.
type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, config).Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, body, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func objectChan(objs ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		ch <- o
	}
	close(ch)
	return ch
}

type ClientTestSuite struct {
	suite.Suite
	api *MockMinIOAPI
	ctx context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)

	s.Equal("us-east-1", cfg.Region)
	s.Equal("treatyboard-reports", cfg.Bucket)
	s.Equal(time.Hour, cfg.PresignExpiry)
	s.Equal(10*time.Second, cfg.ConnectTimeout)
}

func (s *ClientTestSuite) TestNewClient_CreatesMissingBucket() {
	s.api.On("BucketExists", s.ctx, "reports").Return(false, nil)
	s.api.On("MakeBucket", s.ctx, "reports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	c, err := NewMinIOClientWithAPI(s.ctx, s.api, &MinIOConfig{Bucket: "reports"}, nil)
	s.Require().NoError(err)
	s.Equal("reports", c.Bucket())
	s.api.AssertExpectations(s.T())
	s.api.AssertNotCalled(s.T(), "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestNewClient_InstallsRetentionRule() {
	s.api.On("BucketExists", s.ctx, "reports").Return(true, nil)
	s.api.On("SetBucketLifecycle", s.ctx, "reports", mock.MatchedBy(func(cfg *lifecycle.Configuration) bool {
		return len(cfg.Rules) == 1 &&
			cfg.Rules[0].Expiration.Days == lifecycle.ExpirationDays(90) &&
			cfg.Rules[0].RuleFilter.Prefix == "snapshots"
	})).Return(stderrors.New("not implemented"))

	_, err := NewMinIOClientWithAPI(s.ctx, s.api, &MinIOConfig{Bucket: "reports", Prefix: "snapshots", RetentionDays: 90}, nil)
	s.Require().NoError(err, "lifecycle failures are not fatal")
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestNewClient_BucketCheckFails() {
	s.api.On("BucketExists", s.ctx, "reports").Return(false, stderrors.New("dial tcp: refused"))

	_, err := NewMinIOClientWithAPI(s.ctx, s.api, &MinIOConfig{Bucket: "reports"}, nil)
	s.True(errors.IsCode(err, errors.ErrCodeArchiveFailed))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", s.ctx, "reports").Return(true, nil)
	c, err := NewMinIOClientWithAPI(s.ctx, s.api, &MinIOConfig{Bucket: "reports"}, nil)
	s.Require().NoError(err)

	status, err := c.HealthCheck(s.ctx)
	s.Require().NoError(err)
	s.True(status.Healthy)

	s.Require().NoError(c.Close())
	_, err = c.HealthCheck(s.ctx)
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func (s *ClientTestSuite) TestPresignedURL() {
	s.api.On("BucketExists", s.ctx, "reports").Return(true, nil)
	u, _ := url.Parse("https://minio.local/reports/renewals/x.json?sig=1")
	s.api.On("PresignedGetObject", s.ctx, "reports", "renewals/x.json", time.Hour, url.Values(nil)).Return(u, nil)

	c, err := NewMinIOClientWithAPI(s.ctx, s.api, &MinIOConfig{Bucket: "reports"}, nil)
	s.Require().NoError(err)

	got, err := c.GeneratePresignedGetURL(s.ctx, "renewals/x.json", 0)
	s.Require().NoError(err)
	s.Equal(u.String(), got)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewMinIOClient_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOClient(&MinIOConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveNotConfigured))
}
