package mocks

import (
	"context"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// API is a mock implementation of storage.API
type API struct {
	mock.Mock
}

func (m *API) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.HeadBucketOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.HeadObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.CreateBucketOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.DeleteBucketOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.PutObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.GetObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.CopyObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.DeleteObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.DeleteObjectsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.ListObjectsV2Output); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.ListObjectVersionsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) GetObjectTagging(ctx context.Context, params *s3.GetObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.GetObjectTaggingOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) PutObjectTagging(ctx context.Context, params *s3.PutObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.PutObjectTaggingOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) DeleteObjectTagging(ctx context.Context, params *s3.DeleteObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectTaggingOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.DeleteObjectTaggingOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) PutObjectAcl(ctx context.Context, params *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.PutObjectAclOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) PutBucketAcl(ctx context.Context, params *s3.PutBucketAclInput, optFns ...func(*s3.Options)) (*s3.PutBucketAclOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.PutBucketAclOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) GetBucketOwnershipControls(ctx context.Context, params *s3.GetBucketOwnershipControlsInput, optFns ...func(*s3.Options)) (*s3.GetBucketOwnershipControlsOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.GetBucketOwnershipControlsOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

// Presigner is a mock implementation of storage.Presigner
type Presigner struct {
	mock.Mock
}

func (m *Presigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*v4.PresignedHTTPRequest); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Presigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*v4.PresignedHTTPRequest); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
