package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	apperrors "insurance-backoffice/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake S3
// ==========================

type fakeS3 struct {
	mu            sync.Mutex
	bucketExists  bool
	objects       map[string][]byte
	contentTypes  map[string]string
	createdBucket *s3.CreateBucketInput
	putErr        error
	deleted       []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createdBucket = in
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func newTestS3(api S3API) *S3 {
	return NewS3(api, S3Config{Bucket: "insurance-documents", Region: "eu-west-1"})
}

// ==========================
// S3 variant
// ==========================

func TestS3_EnsureContainer(t *testing.T) {
	t.Run("creates missing bucket", func(t *testing.T) {
		api := newFakeS3()
		store := newTestS3(api)

		require.NoError(t, store.EnsureContainer(context.Background()))
		require.NotNil(t, api.createdBucket)
		assert.Equal(t, "insurance-documents", aws.ToString(api.createdBucket.Bucket))
		assert.Equal(t, types.BucketLocationConstraint("eu-west-1"), api.createdBucket.CreateBucketConfiguration.LocationConstraint)
	})

	t.Run("idempotent when bucket exists", func(t *testing.T) {
		api := newFakeS3()
		api.bucketExists = true
		store := newTestS3(api)

		require.NoError(t, store.EnsureContainer(context.Background()))
		assert.Nil(t, api.createdBucket)
	})
}

func TestS3_PutGetDeleteList(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store := newTestS3(api)

	url, err := store.Put(ctx, "claims/12/death-certificate/abc.pdf", []byte("pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.eu-west-1.amazonaws.com/insurance-documents/claims/12/death-certificate/abc.pdf", url)
	assert.Equal(t, "application/pdf", api.contentTypes["claims/12/death-certificate/abc.pdf"])

	// overwrite
	_, err = store.Put(ctx, "/claims/12/death-certificate/abc.pdf", []byte("pdf2"), "")
	require.NoError(t, err)

	data, err := store.Get(ctx, "claims/12/death-certificate/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf2", string(data))

	_, err = store.Get(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Put(ctx, "users/1/kyc/x.png", []byte("png"), "image/png")
	require.NoError(t, err)

	keys, err := store.List(ctx, "claims/")
	require.NoError(t, err)
	assert.Equal(t, []string{"claims/12/death-certificate/abc.pdf"}, keys)

	keys, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	exists, err := store.Exists(ctx, "users/1/kyc/x.png")
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err := store.Delete(ctx, "users/1/kyc/x.png")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "users/1/kyc/x.png")
	require.NoError(t, err)
	assert.False(t, removed, "absent key is not an error")
	assert.Equal(t, []string{"users/1/kyc/x.png"}, api.deleted)
}

func TestS3_CustomEndpointURL(t *testing.T) {
	store := NewS3(newFakeS3(), S3Config{Bucket: "docs", Endpoint: "http://minio:9000/"})
	assert.Equal(t, "http://minio:9000/docs/users/1/kyc/a.pdf", store.URLForKey("users/1/kyc/a.pdf"))
	assert.Equal(t, BackendS3, store.Backend())
}

// ==========================
// Local variant
// ==========================

func TestLocal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "uploads")
	store := NewLocal(root, "http://localhost:8000/")

	require.NoError(t, store.EnsureContainer(ctx))

	url, err := store.Put(ctx, "claims/pending/4/claim-form/f.txt", []byte("hello"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/uploads/claims/pending/4/claim-form/f.txt", url)

	onDisk, err := os.ReadFile(filepath.Join(root, "claims", "pending", "4", "claim-form", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(onDisk))

	data, err := store.Get(ctx, "claims/pending/4/claim-form/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	keys, err := store.List(ctx, "claims/pending/")
	require.NoError(t, err)
	assert.Equal(t, []string{"claims/pending/4/claim-form/f.txt"}, keys)

	removed, err := store.Delete(ctx, "claims/pending/4/claim-form/f.txt")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "claims/pending/4/claim-form/f.txt")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.Get(ctx, "claims/pending/4/claim-form/f.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	store := NewLocal(t.TempDir(), "http://localhost")
	_, err := store.Put(context.Background(), "../../etc/passwd", []byte("x"), "")
	assert.Error(t, err)
}

func TestLocal_ListMissingRoot(t *testing.T) {
	store := NewLocal(filepath.Join(t.TempDir(), "never-created"), "http://localhost")
	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// ==========================
// Unconfigured variant
// ==========================

func TestUnconfigured(t *testing.T) {
	ctx := context.Background()
	store := NewUnconfigured()

	_, err := store.Put(ctx, "a", []byte("x"), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = store.Delete(ctx, "a")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, store.EnsureContainer(ctx), ErrNotConfigured)

	keys, err := store.List(ctx, "claims/")
	assert.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, BackendUnconfigured, store.Backend())
}

// ==========================
// Error classification
// ==========================

func TestClassifyPutError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   apperrors.ErrorCode
		status int
		msg    string
	}{
		{
			name:   "deadline",
			err:    &smithy.OperationError{ServiceID: "S3", OperationName: "PutObject", Err: context.DeadlineExceeded},
			code:   apperrors.ErrCodeStorageTimeout,
			status: http.StatusGatewayTimeout,
			msg:    msgStorageTimeout,
		},
		{
			name:   "service error",
			err:    &smithy.OperationError{ServiceID: "S3", OperationName: "PutObject", Err: errors.New("connection reset")},
			code:   apperrors.ErrCodeStorageUnavailable,
			status: http.StatusInternalServerError,
			msg:    msgStorageUnavailable,
		},
		{
			name:   "api error",
			err:    &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
			code:   apperrors.ErrCodeStorageUnavailable,
			status: http.StatusInternalServerError,
			msg:    msgStorageUnavailable,
		},
		{
			name:   "other",
			err:    errors.New("disk full"),
			code:   apperrors.ErrCodeInternal,
			status: http.StatusInternalServerError,
			msg:    "Upload failed: disk full. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := ClassifyPutError(tt.err)
			require.NotNil(t, stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.status, stdErr.Status())
			assert.Equal(t, tt.msg, stdErr.Message)
			assert.ErrorIs(t, stdErr, tt.err)
		})
	}

	assert.Nil(t, ClassifyPutError(nil))
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "users/1/kyc/a.pdf", JoinKey("users/1/kyc", "a.pdf"))
	assert.Equal(t, "users/1/kyc/a.pdf", JoinKey("/users/1/kyc/", "a.pdf"))
	assert.Equal(t, "a.pdf", JoinKey("", "a.pdf"))
}
