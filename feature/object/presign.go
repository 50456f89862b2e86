package object

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignGet issues a time-limited download URL for the object.
func (s *Service) presignGet(ctx context.Context, req *Request) (string, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	}
	if req.VersionID != "" {
		in.VersionId = aws.String(req.VersionID)
	}

	out, err := s.presigner.PresignGetObject(ctx, in, s3.WithPresignExpires(req.expiry()))
	if err != nil {
		return "", fmt.Errorf("unable to generate presigned URL for %s: %w", req.Key, err)
	}
	return out.URL, nil
}

// presignPut issues a time-limited upload URL for the given key.
func (s *Service) presignPut(ctx context.Context, req *Request, key string) (string, error) {
	out, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(req.expiry()))
	if err != nil {
		return "", fmt.Errorf("unable to generate presigned URL for %s: %w", key, err)
	}
	return out.URL, nil
}
