package object

import (
	"context"
	"fmt"

	"s3-object-manager/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// deleteBatch removes one page of object identifiers in a single bulk
// delete call.
func (s *Service) deleteBatch(ctx context.Context, bucket string, ids []types.ObjectIdentifier) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects from bucket %s: %w", bucket, err)
	}
	return nil
}

// emptyBucket drains every object version and delete marker from the
// bucket, page by page. Backends without versioned listing, or callers
// without the version listing permission, fall back to a keys-only drain.
func (s *Service) emptyBucket(ctx context.Context, bucket string) error {
	var keyMarker, versionMarker *string
	first := true

	for {
		out, err := s.api.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			if first && (storage.IsUnsupported(err) || storage.IsForbidden(err)) {
				s.log.Warn("falling back to unversioned listing while emptying bucket",
					zap.String("bucket", bucket),
					zap.Error(err))
				return s.emptyBucketByKey(ctx, bucket)
			}
			return fmt.Errorf("failed to list object versions in bucket %s: %w", bucket, err)
		}
		first = false

		ids := make([]types.ObjectIdentifier, 0, len(out.Versions)+len(out.DeleteMarkers))
		for _, v := range out.Versions {
			ids = append(ids, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range out.DeleteMarkers {
			ids = append(ids, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}
		if err := s.deleteBatch(ctx, bucket, ids); err != nil {
			return err
		}

		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		keyMarker = out.NextKeyMarker
		versionMarker = out.NextVersionIdMarker
	}
}

// emptyBucketByKey drains the bucket's current keys without touching
// version history.
func (s *Service) emptyBucketByKey(ctx context.Context, bucket string) error {
	var token *string

	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
		}

		ids := make([]types.ObjectIdentifier, 0, len(out.Contents))
		for _, obj := range out.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		if err := s.deleteBatch(ctx, bucket, ids); err != nil {
			return err
		}

		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		token = out.NextContinuationToken
	}
}
