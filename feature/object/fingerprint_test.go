package object

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"s3-object-manager/core/storage/mocks"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSingleETag(t *testing.T) {
	etag, err := singleETag(contentSource{data: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, `"5d41402abc4b2a76b9719d911017c592"`, etag)
}

func TestMultipartETagRe(t *testing.T) {
	assert.True(t, multipartETagRe.MatchString(`"5d41402abc4b2a76b9719d911017c592-3"`))
	assert.False(t, multipartETagRe.MatchString(`"5d41402abc4b2a76b9719d911017c592"`))
	assert.False(t, multipartETagRe.MatchString(`5d41402abc4b2a76b9719d911017c592-3`))
}

func TestETagMatches(t *testing.T) {
	data := []byte("0123456789")
	p1 := md5.Sum(data[:5])
	p2 := md5.Sum(data[5:])
	concat := append(p1[:], p2[:]...)
	final := md5.Sum(concat)
	multipartTag := fmt.Sprintf("%q", fmt.Sprintf("%x-2", final))

	headNoPart := func(in *s3.HeadObjectInput) bool { return in.PartNumber == nil }
	headPart := func(n int32) func(*s3.HeadObjectInput) bool {
		return func(in *s3.HeadObjectInput) bool { return aws.ToInt32(in.PartNumber) == n }
	}

	t.Run("SinglePartMatch", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headNoPart)).
			Return(&s3.HeadObjectOutput{ETag: aws.String(`"5d41402abc4b2a76b9719d911017c592"`)}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		match, err := svc.etagMatches(context.Background(), "my-bucket", "data.bin", "",
			contentSource{data: []byte("hello")})
		require.NoError(t, err)
		assert.True(t, match)
	})

	t.Run("SinglePartMismatch", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headNoPart)).
			Return(&s3.HeadObjectOutput{ETag: aws.String(`"5d41402abc4b2a76b9719d911017c592"`)}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		match, err := svc.etagMatches(context.Background(), "my-bucket", "data.bin", "",
			contentSource{data: []byte("other")})
		require.NoError(t, err)
		assert.False(t, match)
	})

	t.Run("AbsentRemote", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.Anything).Return(nil, apiErr("NotFound"))

		svc, _ := newTestService(api, &mocks.Presigner{})
		match, err := svc.etagMatches(context.Background(), "my-bucket", "data.bin", "",
			contentSource{data: []byte("hello")})
		require.NoError(t, err)
		assert.False(t, match)
	})

	t.Run("MultipartMatch", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headNoPart)).
			Return(&s3.HeadObjectOutput{ETag: aws.String(multipartTag)}, nil)
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headPart(1))).
			Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(5)}, nil)
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headPart(2))).
			Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(5)}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		match, err := svc.etagMatches(context.Background(), "my-bucket", "data.bin", "",
			contentSource{data: data})
		require.NoError(t, err)
		assert.True(t, match)
	})

	t.Run("MultipartMismatch", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headNoPart)).
			Return(&s3.HeadObjectOutput{ETag: aws.String(multipartTag)}, nil)
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headPart(1))).
			Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(5)}, nil)
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headPart(2))).
			Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(5)}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		match, err := svc.etagMatches(context.Background(), "my-bucket", "data.bin", "",
			contentSource{data: []byte("9876543210")})
		require.NoError(t, err)
		assert.False(t, match)
	})

	t.Run("UnreadableSourceForcesTransfer", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.MatchedBy(headNoPart)).
			Return(&s3.HeadObjectOutput{ETag: aws.String(`"5d41402abc4b2a76b9719d911017c592"`)}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		match, err := svc.etagMatches(context.Background(), "my-bucket", "data.bin", "",
			contentSource{path: "/nonexistent/file"})
		require.NoError(t, err)
		assert.False(t, match)
	})
}

func TestLocalIsLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	fi, err := os.Stat(path)
	require.NoError(t, err)

	t.Run("LocalNewer", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.Anything).
			Return(&s3.HeadObjectOutput{LastModified: aws.Time(fi.ModTime().Add(-time.Hour))}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		latest, err := svc.localIsLatest(context.Background(), "my-bucket", "data.bin", "", path)
		require.NoError(t, err)
		assert.True(t, latest)
	})

	t.Run("RemoteNewer", func(t *testing.T) {
		api := &mocks.API{}
		api.On("HeadObject", mock.Anything, mock.Anything).
			Return(&s3.HeadObjectOutput{LastModified: aws.Time(fi.ModTime().Add(time.Hour))}, nil)

		svc, _ := newTestService(api, &mocks.Presigner{})
		latest, err := svc.localIsLatest(context.Background(), "my-bucket", "data.bin", "", path)
		require.NoError(t, err)
		assert.False(t, latest)
	})

	t.Run("MissingLocal", func(t *testing.T) {
		svc, _ := newTestService(&mocks.API{}, &mocks.Presigner{})
		latest, err := svc.localIsLatest(context.Background(), "my-bucket", "data.bin", "", "/nonexistent/file")
		require.NoError(t, err)
		assert.False(t, latest)
	})
}

func TestApplyExtraArgs(t *testing.T) {
	in := &s3.PutObjectInput{}
	applyExtraArgs(in, map[string]string{
		"Content-Type":     "application/json",
		"Cache-Control":    "max-age=3600",
		"x-custom-field":   "custom",
		"contentencoding":  "gzip",
		"Content-Language": "en",
		"Storage-Class":    "GLACIER",
	})

	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "max-age=3600", aws.ToString(in.CacheControl))
	assert.Equal(t, "gzip", aws.ToString(in.ContentEncoding))
	assert.Equal(t, "en", aws.ToString(in.ContentLanguage))
	assert.Equal(t, types.StorageClassGlacier, in.StorageClass)
	assert.Equal(t, map[string]string{"x-custom-field": "custom"}, in.Metadata)
}
