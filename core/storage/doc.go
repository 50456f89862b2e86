// Package storage provides an abstraction layer for S3-compatible object
// storage services.
//
// It wraps the AWS SDK v2 S3 client behind a minimal interface subset so
// that storage interactions can be mocked for unit testing (as seen in
// core/storage/mocks). The subset covers exactly the calls the object
// reconciliation workflows need: existence heads, object transfer, copy,
// tagging, canned ACLs, versioned listing, batch deletion and presigning.
//
// # Client Interface
//
// The API interface mirrors the method set of *s3.Client for the required
// operations, so the concrete SDK client satisfies it without adapters.
// Presigner does the same for *s3.PresignClient.
//
// # Error taxonomy
//
// The Is* helpers classify backend failures into the categories the
// workflows branch on: not-found, forbidden, unsupported-operation,
// transient transport faults, signature-version-4-required and missing
// tag sets.
//
// # Usage
//
//	client, err := storage.NewClient(ctx, config)
//	_, err = client.API().HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String("assets")})
package storage
