package credstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/credstore"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

// bucket is an in-memory S3Client used for the shared store contract.
type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newBucket() *bucket { return &bucket{objects: make(map[string][]byte)} }

func (b *bucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.objects[*in.Key] = data
	b.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (b *bucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	data, ok := b.objects[*in.Key]
	b.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *bucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	b.mu.Lock()
	_, ok := b.objects[*in.Key]
	b.mu.Unlock()
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (b *bucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	delete(b.objects, *in.Key)
	b.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (b *bucket) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func newS3Store(t *testing.T, client credstore.S3Client) *credstore.S3Store {
	t.Helper()
	s, err := credstore.NewS3Store(context.Background(),
		credstore.S3Config{Bucket: "wamux", Region: "us-east-1", Prefix: "creds"},
		credstore.WithS3Client(client),
	)
	require.NoError(t, err)
	return s
}

func TestS3Store(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) credstore.Store { return newS3Store(t, newBucket()) })
}

func TestS3StoreKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := new(MockS3Client)
	s := newS3Store(t, client)

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "wamux" && *in.Key == "creds/school-1" && *in.ContentLength == 4
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, s.Save(ctx, "school-1", []byte("blob")))
	client.AssertExpectations(t)
}

func TestS3StoreErrorClassification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("api no such key is not found", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("GetObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"})
		_, err := newS3Store(t, client).Retrieve(ctx, "school-1")
		assert.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("access denied is unavailable", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("PutObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"})
		err := newS3Store(t, client).Save(ctx, "school-1", []byte("x"))
		assert.ErrorIs(t, err, credstore.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "AccessDenied")
	})

	t.Run("network failure is unavailable", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("GetObject", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))
		_, err := newS3Store(t, client).Retrieve(ctx, "school-1")
		assert.ErrorIs(t, err, credstore.ErrStoreUnavailable)
	})

	t.Run("deadline passes through", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("GetObject", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
		_, err := newS3Store(t, client).Retrieve(ctx, "school-1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("deleting a missing object succeeds", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})
		assert.NoError(t, newS3Store(t, client).Delete(ctx, "school-1"))
	})
}

func TestS3StoreHealthcheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	require.NoError(t, newS3Store(t, newBucket()).Healthcheck(ctx))

	client := new(MockS3Client)
	client.On("HeadBucket", mock.Anything, mock.MatchedBy(func(in *s3.HeadBucketInput) bool {
		return *in.Bucket == "wamux"
	})).Return(nil, &smithy.GenericAPIError{Code: "Forbidden", Message: "denied"}).Once()
	err := newS3Store(t, client).Healthcheck(ctx)
	assert.ErrorIs(t, err, credstore.ErrStoreUnavailable)
	client.AssertExpectations(t)
}

func TestNewS3StoreConfig(t *testing.T) {
	t.Parallel()
	_, err := credstore.NewS3Store(context.Background(), credstore.S3Config{Region: "eu-west-1"})
	assert.ErrorIs(t, err, credstore.ErrInvalidConfig)
}
