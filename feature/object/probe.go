package object

import (
	"context"
	"fmt"

	"s3-object-manager/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presence is the outcome of a remote existence probe. A forbidden head
// response cannot be told apart from an absent target, so it gets its own
// state instead of being collapsed into either.
type Presence int

const (
	Absent Presence = iota
	Present
	Ambiguous
)

// probeBucket heads the bucket. For Ambiguous the returned error carries
// the forbidden cause; for Absent and Present it is nil. Any other fault
// is fatal.
func (s *Service) probeBucket(ctx context.Context, bucket string) (Presence, error) {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	switch {
	case err == nil:
		return Present, nil
	case storage.IsNotFound(err):
		return Absent, nil
	case storage.IsForbidden(err):
		return Ambiguous, err
	default:
		return Absent, fmt.Errorf("failed while looking up bucket %s: %w", bucket, err)
	}
}

// probeKey heads the object, optionally at a specific version.
func (s *Service) probeKey(ctx context.Context, bucket, key, version string) (Presence, error) {
	in := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if version != "" {
		in.VersionId = aws.String(version)
	}

	_, err := s.api.HeadObject(ctx, in)
	switch {
	case err == nil:
		return Present, nil
	case storage.IsNotFound(err):
		return Absent, nil
	case storage.IsForbidden(err):
		return Ambiguous, err
	default:
		return Absent, fmt.Errorf("failed while looking up object (during key check) %s: %w", key, err)
	}
}

// bucketExists resolves a bucket probe under the validate flag. Without
// validation a forbidden head is treated as existing, since the caller may
// hold only the narrower permission needed for the actual operation.
func (s *Service) bucketExists(ctx context.Context, bucket string, validate bool) (bool, error) {
	presence, err := s.probeBucket(ctx, bucket)
	switch presence {
	case Present:
		return true, nil
	case Ambiguous:
		if validate {
			return false, fmt.Errorf("permission denied accessing bucket %s: %w", bucket, err)
		}
		return true, nil
	default:
		return false, err
	}
}

// keyExists resolves an object probe under the validate flag, with the
// same ambiguity rule as bucketExists.
func (s *Service) keyExists(ctx context.Context, bucket, key, version string, validate bool) (bool, error) {
	presence, err := s.probeKey(ctx, bucket, key, version)
	switch presence {
	case Present:
		return true, nil
	case Ambiguous:
		if validate {
			return false, fmt.Errorf("permission denied accessing object %s: %w", key, err)
		}
		return true, nil
	default:
		return false, err
	}
}
