package object

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// doPut uploads the request's content source, creating the bucket first if
// needed. When the overwrite policy decides the remote content is already
// current, only the tag set is reconciled.
func (s *Service) doPut(ctx context.Context, req *Request, state *workflowState) (*Result, error) {
	src, err := req.contentSource()
	if err != nil {
		return nil, err
	}

	if !state.bucketPresent {
		if err := s.createBucket(ctx, req, state); err != nil {
			return nil, err
		}
	}

	exists, err := s.keyExists(ctx, req.Bucket, req.Key, req.VersionID, req.Validate)
	if err != nil {
		return nil, err
	}

	if exists {
		skip, err := s.shouldSkipUpload(ctx, req, src)
		if err != nil {
			return nil, err
		}
		if skip {
			tags, tagsChanged, err := s.ensureTags(ctx, req)
			if err != nil {
				return nil, err
			}
			u, err := s.presignGet(ctx, req)
			if err != nil {
				return nil, err
			}
			return &Result{
				Changed: tagsChanged,
				Message: fmt.Sprintf("PUT operation skipped - object %s already present with matching content", req.Key),
				URL:     u,
				Tags:    tags,
			}, nil
		}
	}

	if req.CheckMode {
		return &Result{Changed: true, Message: "PUT operation skipped - running in check mode"}, nil
	}

	if err := s.upload(ctx, req, state, src); err != nil {
		return nil, err
	}
	if !state.aclDisabled {
		if err := s.applyObjectACLs(ctx, req.Bucket, req.Key, state.objectACL); err != nil {
			return nil, fmt.Errorf("unable to set object ACL on %s: %w", req.Key, err)
		}
	}

	tags, _, err := s.ensureTags(ctx, req)
	if err != nil {
		return nil, err
	}
	u, err := s.presignGet(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Result{
		Changed: true,
		Message: "PUT operation complete",
		URL:     u,
		Tags:    tags,
	}, nil
}

// doGet downloads the object to the local destination, honoring the
// overwrite policy against an existing local file.
func (s *Service) doGet(ctx context.Context, req *Request) (*Result, error) {
	exists, err := s.keyExists(ctx, req.Bucket, req.Key, req.VersionID, req.Validate)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("key %s does not exist", req.Key)
	}

	if _, err := os.Stat(req.Dest); err == nil {
		switch req.Overwrite {
		case OverwriteNever:
			return &Result{
				Changed: false,
				Message: "Local object already exists and overwrite is disabled.",
			}, nil
		case OverwriteDifferent:
			match, err := s.etagMatches(ctx, req.Bucket, req.Key, req.VersionID, contentSource{path: req.Dest})
			if err != nil {
				return nil, err
			}
			if match {
				return &Result{
					Changed: false,
					Message: "Local and remote object are identical, ignoring. Use overwrite=always parameter to force.",
				}, nil
			}
		case OverwriteLatest:
			latest, err := s.localIsLatest(ctx, req.Bucket, req.Key, req.VersionID, req.Dest)
			if err != nil {
				return nil, err
			}
			if latest {
				return &Result{
					Changed: false,
					Message: "Local object is latest, ignoring. Use overwrite=always parameter to force.",
				}, nil
			}
		}
	}

	if req.CheckMode {
		return &Result{Changed: true, Message: "GET operation skipped - running in check mode"}, nil
	}

	if err := s.download(ctx, req); err != nil {
		return nil, err
	}
	return &Result{Changed: true, Message: "GET operation complete"}, nil
}

// doGetStr returns the object body as a string.
func (s *Service) doGetStr(ctx context.Context, req *Request) (*Result, error) {
	exists, err := s.keyExists(ctx, req.Bucket, req.Key, req.VersionID, req.Validate)
	if err != nil {
		return nil, err
	}
	if !exists {
		if req.VersionID != "" {
			return nil, fmt.Errorf("key %s with version id %s does not exist", req.Key, req.VersionID)
		}
		return nil, fmt.Errorf("key %s does not exist", req.Key)
	}

	contents, err := s.downloadString(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Result{Changed: true, Message: "GETSTR operation complete", Contents: contents}, nil
}

// doGetURL issues a presigned download URL without touching the object.
func (s *Service) doGetURL(ctx context.Context, req *Request) (*Result, error) {
	exists, err := s.keyExists(ctx, req.Bucket, req.Key, req.VersionID, req.Validate)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("key %s does not exist", req.Key)
	}

	tags, err := s.currentObjectTags(ctx, req.Bucket, req.Key, req.VersionID)
	if err != nil {
		return nil, err
	}
	u, err := s.presignGet(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Result{Changed: false, Message: "Download url:", URL: u, Tags: tags}, nil
}

// doDelObj removes a single object. Deleting an absent key is a success on
// the remote side, so the operation reports changed unconditionally.
func (s *Service) doDelObj(ctx context.Context, req *Request) (*Result, error) {
	if req.CheckMode {
		return &Result{Changed: true, Message: "DELETE operation skipped - running in check mode"}, nil
	}

	in := &s3.DeleteObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	}
	if req.VersionID != "" {
		in.VersionId = aws.String(req.VersionID)
	}
	if _, err := s.api.DeleteObject(ctx, in); err != nil {
		return nil, fmt.Errorf("failed while trying to delete %s: %w", req.Key, err)
	}

	return &Result{
		Changed: true,
		Message: fmt.Sprintf("Object deleted from bucket %s.", req.Bucket),
	}, nil
}

// doDelete drains and removes the whole bucket. Absent buckets resolve
// without change.
func (s *Service) doDelete(ctx context.Context, req *Request, state *workflowState) (*Result, error) {
	s.log.Warn("mode delete is deprecated, use a dedicated bucket management tool instead")

	if !state.bucketPresent {
		return &Result{Changed: false, Message: fmt.Sprintf("Bucket %s does not exist.", req.Bucket)}, nil
	}
	if req.CheckMode {
		return &Result{Changed: true, Message: "DELETE operation skipped - running in check mode"}, nil
	}

	if err := s.emptyBucket(ctx, req.Bucket); err != nil {
		return nil, err
	}
	if _, err := s.api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(req.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed while deleting bucket %s: %w", req.Bucket, err)
	}

	return &Result{
		Changed: true,
		Message: fmt.Sprintf("Bucket %s and all keys have been deleted.", req.Bucket),
	}, nil
}

// doCreate creates the bucket and, when a key is given, a zero-byte
// virtual directory marker under it.
func (s *Service) doCreate(ctx context.Context, req *Request, state *workflowState) (*Result, error) {
	s.log.Warn("mode create is deprecated, use a dedicated bucket management tool instead")

	if req.Key == "" {
		if state.bucketPresent {
			return &Result{Changed: false, Message: "Bucket already exists."}, nil
		}
		if req.CheckMode {
			return &Result{Changed: true, Message: "CREATE operation skipped - running in check mode"}, nil
		}
		if err := s.createBucket(ctx, req, state); err != nil {
			return nil, err
		}
		return &Result{Changed: true, Message: "Bucket created successfully"}, nil
	}

	dirKey := req.Key
	if !strings.HasSuffix(dirKey, "/") {
		dirKey += "/"
	}
	dirReq := *req
	dirReq.Key = dirKey

	if state.bucketPresent {
		exists, err := s.keyExists(ctx, req.Bucket, dirKey, "", req.Validate)
		if err != nil {
			return nil, err
		}
		if exists {
			u, err := s.presignPut(ctx, req, dirKey)
			if err != nil {
				return nil, err
			}
			return &Result{
				Changed: false,
				Message: fmt.Sprintf("Bucket %s and key %s already exists.", req.Bucket, dirKey),
				URL:     u,
			}, nil
		}
	}

	if req.CheckMode {
		return &Result{Changed: true, Message: "CREATE operation skipped - running in check mode"}, nil
	}

	if !state.bucketPresent {
		if err := s.createBucket(ctx, req, state); err != nil {
			return nil, err
		}
	}

	if err := s.upload(ctx, &dirReq, state, contentSource{}); err != nil {
		return nil, err
	}
	if !state.aclDisabled {
		if err := s.applyObjectACLs(ctx, req.Bucket, dirKey, state.objectACL); err != nil {
			return nil, fmt.Errorf("unable to set object ACL on %s: %w", dirKey, err)
		}
	}
	if _, _, err := s.ensureTags(ctx, &dirReq); err != nil {
		return nil, err
	}

	u, err := s.presignPut(ctx, req, dirKey)
	if err != nil {
		return nil, err
	}
	return &Result{
		Changed: true,
		Message: fmt.Sprintf("Virtual directory %s created in bucket %s", dirKey, req.Bucket),
		URL:     u,
	}, nil
}

// doCopy copies an object between buckets. When source and destination
// already carry the same ETag only the tag set is reconciled.
func (s *Service) doCopy(ctx context.Context, req *Request, state *workflowState) (*Result, error) {
	src := req.CopySrc

	destKey := req.Key
	if destKey == "" {
		destKey = src.Key
	}
	destReq := *req
	destReq.Key = destKey

	srcExists, err := s.keyExists(ctx, src.Bucket, src.Key, src.VersionID, req.Validate)
	if err != nil {
		return nil, err
	}
	if !srcExists {
		return &Result{
			Changed: false,
			Message: fmt.Sprintf("Key %s does not exist in bucket %s.", src.Key, src.Bucket),
		}, nil
	}

	if !state.bucketPresent {
		if err := s.createBucket(ctx, req, state); err != nil {
			return nil, err
		}
	}

	srcETag, err := s.remoteETag(ctx, src.Bucket, src.Key, src.VersionID)
	if err != nil {
		return nil, err
	}
	destETag, err := s.remoteETag(ctx, req.Bucket, destKey, "")
	if err != nil {
		return nil, err
	}

	if destETag != "" && destETag == srcETag {
		tags, tagsChanged, err := s.ensureTags(ctx, &destReq)
		if err != nil {
			return nil, err
		}
		msg := "ETag from source and destination are the same"
		if tagsChanged {
			msg = "tags successfully updated."
		}
		return &Result{Changed: tagsChanged, Message: msg, Tags: tags}, nil
	}

	if req.CheckMode {
		return &Result{Changed: true, Message: "COPY operation skipped - running in check mode"}, nil
	}

	copySource := url.PathEscape(src.Bucket + "/" + src.Key)
	if src.VersionID != "" {
		copySource += "?versionId=" + src.VersionID
	}

	in := &s3.CopyObjectInput{
		Bucket:     aws.String(req.Bucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(copySource),
	}
	if req.Encrypt {
		mode := req.EncryptionMode
		if mode == "" {
			mode = "AES256"
		}
		in.ServerSideEncryption = types.ServerSideEncryption(mode)
		if mode == "aws:kms" && req.KMSKeyID != "" {
			in.SSEKMSKeyId = aws.String(req.KMSKeyID)
		}
	}
	if len(req.Metadata) > 0 {
		in.Metadata = req.Metadata
		in.MetadataDirective = types.MetadataDirectiveReplace
	}
	if !state.aclDisabled && len(state.objectACL) > 0 {
		in.ACL = types.ObjectCannedACL(state.objectACL[0])
	}

	if _, err := s.api.CopyObject(ctx, in); err != nil {
		return nil, fmt.Errorf("failed while copying object %s from bucket %s: %w", src.Key, src.Bucket, err)
	}

	if !state.aclDisabled {
		if err := s.applyObjectACLs(ctx, req.Bucket, destKey, state.objectACL); err != nil {
			return nil, fmt.Errorf("unable to set object ACL on %s: %w", destKey, err)
		}
	}
	tags, _, err := s.ensureTags(ctx, &destReq)
	if err != nil {
		return nil, err
	}

	s.log.Info("object copied",
		zap.String("source_bucket", src.Bucket),
		zap.String("source_object", src.Key),
		zap.String("bucket", req.Bucket),
		zap.String("object", destKey))

	return &Result{
		Changed: true,
		Message: fmt.Sprintf("Object copied from bucket %s to bucket %s.", src.Bucket, req.Bucket),
		Tags:    tags,
	}, nil
}

// doList enumerates keys in the bucket, bounded by prefix, start marker
// and a total key cap.
func (s *Service) doList(ctx context.Context, req *Request) (*Result, error) {
	keys := []string{}
	var token *string

	for {
		in := &s3.ListObjectsV2Input{
			Bucket:            aws.String(req.Bucket),
			ContinuationToken: token,
		}
		if req.Prefix != "" {
			in.Prefix = aws.String(req.Prefix)
		}
		if req.Marker != "" {
			in.StartAfter = aws.String(req.Marker)
		}

		out, err := s.api.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed while listing bucket %s: %w", req.Bucket, err)
		}

		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
			if req.MaxKeys > 0 && int32(len(keys)) >= req.MaxKeys {
				return &Result{Changed: false, Message: "LIST operation complete", Keys: keys}, nil
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			return &Result{Changed: false, Message: "LIST operation complete", Keys: keys}, nil
		}
		token = out.NextContinuationToken
	}
}
