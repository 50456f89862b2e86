package object

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"s3-object-manager/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Multipart ETags look like "<hex>-<parts>": the md5 of the concatenated
// per-part md5 digests, suffixed with the part count.
var multipartETagRe = regexp.MustCompile(`^"[a-f0-9]{32}-([0-9]+)"$`)

// remoteETag heads the object and returns its quoted ETag, or empty when
// the object does not exist.
func (s *Service) remoteETag(ctx context.Context, bucket, key, version string) (string, error) {
	in := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if version != "" {
		in.VersionId = aws.String(version)
	}

	out, err := s.api.HeadObject(ctx, in)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read ETag of %s: %w", key, err)
	}
	return aws.ToString(out.ETag), nil
}

// singleETag computes the plain md5 fingerprint of src, quoted the way S3
// reports it.
func singleETag(src contentSource) (string, error) {
	r, _, err := src.open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to checksum source: %w", err)
	}
	return fmt.Sprintf("%q", fmt.Sprintf("%x", h.Sum(nil))), nil
}

// multipartETag recomputes the multipart fingerprint of src using the part
// boundaries the remote object was uploaded with. Each part's size is read
// back with a per-part head request, so the local digests line up with the
// original chunking no matter what part size was used.
func (s *Service) multipartETag(ctx context.Context, bucket, key, version string, parts int, src contentSource) (string, error) {
	r, _, err := src.open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	digests := make([]byte, 0, parts*md5.Size)
	for part := 1; part <= parts; part++ {
		in := &s3.HeadObjectInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(key),
			PartNumber: aws.Int32(int32(part)),
		}
		if version != "" {
			in.VersionId = aws.String(version)
		}
		head, err := s.api.HeadObject(ctx, in)
		if err != nil {
			return "", fmt.Errorf("failed to read size of part %d: %w", part, err)
		}

		h := md5.New()
		if _, err := io.CopyN(h, r, aws.ToInt64(head.ContentLength)); err != nil {
			return "", fmt.Errorf("failed to checksum part %d: %w", part, err)
		}
		digests = h.Sum(digests)
	}

	return fmt.Sprintf("%q", fmt.Sprintf("%x-%d", md5.Sum(digests), parts)), nil
}

// etagMatches reports whether the local source and the remote object carry
// the same content fingerprint. A failure to compute the local fingerprint
// is logged and treated as a mismatch, so the content gets re-transferred
// rather than silently skipped.
func (s *Service) etagMatches(ctx context.Context, bucket, key, version string, src contentSource) (bool, error) {
	remote, err := s.remoteETag(ctx, bucket, key, version)
	if err != nil {
		return false, err
	}
	if remote == "" {
		return false, nil
	}

	var local string
	if m := multipartETagRe.FindStringSubmatch(remote); m != nil {
		parts, _ := strconv.Atoi(m[1])
		local, err = s.multipartETag(ctx, bucket, key, version, parts, src)
	} else {
		local, err = singleETag(src)
	}
	if err != nil {
		s.log.Warn("could not compute local fingerprint, forcing transfer",
			zap.String("object", key),
			zap.Error(err))
		return false, nil
	}

	return local == remote, nil
}

// localIsLatest reports whether the local file at path is at least as new
// as the remote object's last modification.
func (s *Service) localIsLatest(ctx context.Context, bucket, key, version, path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, nil
	}

	in := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if version != "" {
		in.VersionId = aws.String(version)
	}
	head, err := s.api.HeadObject(ctx, in)
	if err != nil {
		return false, fmt.Errorf("failed to read modification time of %s: %w", key, err)
	}
	if head.LastModified == nil {
		return false, nil
	}

	return !fi.ModTime().Before(*head.LastModified), nil
}

// shouldSkipUpload decides, for an existing remote object, whether the put
// can be skipped under the configured overwrite policy.
func (s *Service) shouldSkipUpload(ctx context.Context, req *Request, src contentSource) (bool, error) {
	switch req.Overwrite {
	case OverwriteAlways:
		return false, nil
	case OverwriteNever:
		return true, nil
	case OverwriteLatest:
		if req.Src == "" {
			return false, nil
		}
		return s.localIsLatest(ctx, req.Bucket, req.Key, req.VersionID, req.Src)
	default:
		match, err := s.etagMatches(ctx, req.Bucket, req.Key, req.VersionID, src)
		if err != nil {
			return false, err
		}
		return match, nil
	}
}
