package object

import (
	"context"
	"time"

	"s3-object-manager/core/retry"
	"s3-object-manager/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

var bucketCannedACLs = map[string]struct{}{
	"private":            {},
	"public-read":        {},
	"public-read-write":  {},
	"authenticated-read": {},
}

var objectCannedACLs = map[string]struct{}{
	"private":                   {},
	"public-read":               {},
	"public-read-write":         {},
	"aws-exec-read":             {},
	"authenticated-read":        {},
	"bucket-owner-read":         {},
	"bucket-owner-full-control": {},
}

func isBucketACL(acl string) bool {
	_, ok := bucketCannedACLs[acl]
	return ok
}

func isObjectACL(acl string) bool {
	_, ok := objectCannedACLs[acl]
	return ok
}

// partitionACLs splits the requested permissions into the canned ACLs that
// apply to buckets and those that apply to objects. Names valid for both
// end up in both partitions.
func partitionACLs(permissions []string) (bucket, object []string) {
	for _, acl := range permissions {
		if isBucketACL(acl) {
			bucket = append(bucket, acl)
		}
		if isObjectACL(acl) {
			object = append(object, acl)
		}
	}
	return bucket, object
}

// applyObjectACLs applies each requested canned ACL to the object in
// order. Backends without ACL support degrade to a warning.
func (s *Service) applyObjectACLs(ctx context.Context, bucket, key string, acls []string) error {
	for _, acl := range acls {
		_, err := s.api.PutObjectAcl(ctx, &s3.PutObjectAclInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			ACL:    types.ObjectCannedACL(acl),
		})
		if err != nil {
			if storage.IsUnsupported(err) {
				s.log.Warn("PutObjectAcl is not implemented by this storage backend, the permissions parameter is ignored",
					zap.String("bucket", bucket),
					zap.String("object", key))
				return nil
			}
			return err
		}
	}
	return nil
}

// applyBucketACLs applies each requested canned ACL to the bucket. A just
// created bucket may not be visible to the ACL endpoint yet, so NotFound
// answers are retried for a few seconds.
func (s *Service) applyBucketACLs(ctx context.Context, bucket string, acls []string) error {
	policy := retry.Policy{Attempts: 5, Interval: 3 * time.Second, Sleep: s.sleep}

	for _, acl := range acls {
		err := policy.Do(ctx, storage.IsNotFound, func() error {
			_, err := s.api.PutBucketAcl(ctx, &s3.PutBucketAclInput{
				Bucket: aws.String(bucket),
				ACL:    types.BucketCannedACL(acl),
			})
			return err
		})
		if err != nil {
			if storage.IsUnsupported(err) {
				s.log.Warn("PutBucketAcl is not implemented by this storage backend, the permissions parameter is ignored",
					zap.String("bucket", bucket))
				return nil
			}
			return err
		}
	}
	return nil
}
