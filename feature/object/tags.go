package object

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"s3-object-manager/core/retry"
	"s3-object-manager/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const (
	tagPollAttempts = 12
	tagPollInterval = 5 * time.Second
)

var errTagsNotConverged = errors.New("object tags not yet visible")

// currentObjectTags reads the live tag set. Backends that answer a missing
// tag set with an error, or that do not implement tagging at all, resolve
// to an empty map.
func (s *Service) currentObjectTags(ctx context.Context, bucket, key, version string) (map[string]string, error) {
	in := &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if version != "" {
		in.VersionId = aws.String(version)
	}

	out, err := s.api.GetObjectTagging(ctx, in)
	if err != nil {
		if storage.IsNoSuchTagSet(err) {
			return map[string]string{}, nil
		}
		if storage.IsUnsupported(err) {
			s.log.Warn("GetObjectTagging is not implemented by this storage backend",
				zap.String("bucket", bucket),
				zap.String("object", key))
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to get object tags for %s: %w", key, err)
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags, nil
}

// tagSetFromMap converts a tag map into the wire tag set, sorted by key so
// the request body is deterministic.
func tagSetFromMap(tags map[string]string) []types.Tag {
	keys := slices.Sorted(maps.Keys(tags))
	set := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		set = append(set, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return set
}

// ensureTags converges the object's tag set to the requested one. A nil
// request leaves tags alone and returns the live set unchanged. With purge
// the target replaces the live set; without it the request is merged over
// the live set. Returns the final tag set and whether anything changed.
func (s *Service) ensureTags(ctx context.Context, req *Request) (map[string]string, bool, error) {
	current, err := s.currentObjectTags(ctx, req.Bucket, req.Key, req.VersionID)
	if err != nil {
		return nil, false, err
	}
	if req.Tags == nil {
		return current, false, nil
	}

	target := make(map[string]string, len(current)+len(req.Tags))
	if !req.PurgeTags {
		maps.Copy(target, current)
	}
	maps.Copy(target, req.Tags)

	if maps.Equal(current, target) {
		return current, false, nil
	}
	if req.CheckMode {
		return target, true, nil
	}

	if len(target) == 0 {
		_, err = s.api.DeleteObjectTagging(ctx, &s3.DeleteObjectTaggingInput{
			Bucket: aws.String(req.Bucket),
			Key:    aws.String(req.Key),
		})
	} else {
		_, err = s.api.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
			Bucket:  aws.String(req.Bucket),
			Key:     aws.String(req.Key),
			Tagging: &types.Tagging{TagSet: tagSetFromMap(target)},
		})
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to update object tags for %s: %w", req.Key, err)
	}

	live, err := s.waitTagsApplied(ctx, req, target)
	if err != nil {
		return nil, false, err
	}
	return live, true, nil
}

// waitTagsApplied polls the live tag set until it matches target. Tag
// writes propagate asynchronously on some backends, so a bounded number of
// polls is made before giving up.
func (s *Service) waitTagsApplied(ctx context.Context, req *Request, target map[string]string) (map[string]string, error) {
	var live map[string]string

	policy := retry.Policy{Attempts: tagPollAttempts, Interval: tagPollInterval, Sleep: s.sleep}
	err := policy.Do(ctx, func(err error) bool {
		return errors.Is(err, errTagsNotConverged)
	}, func() error {
		current, err := s.currentObjectTags(ctx, req.Bucket, req.Key, req.VersionID)
		if err != nil {
			return err
		}
		live = current
		if !maps.Equal(current, target) {
			return errTagsNotConverged
		}
		return nil
	})

	if errors.Is(err, errTagsNotConverged) {
		return nil, &TagConvergenceError{Requested: target, Live: live}
	}
	if err != nil {
		return nil, err
	}
	return live, nil
}
