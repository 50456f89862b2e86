package cmd

import (
	"context"
	"fmt"

	"s3-object-manager/core/config"
	"s3-object-manager/core/logger"
	"s3-object-manager/core/storage"
	"s3-object-manager/feature/object"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the object command
	objectBucket        string
	objectKey           string
	objectVersionID     string
	objectMode          string
	objectSrc           string
	objectContent       string
	objectContentBase64 string
	objectDest          string
	objectOverwrite     string
	objectRetries       int
	objectExpiry        int
	objectMetadata      map[string]string
	objectHeaders       map[string]string
	objectPermissions   []string
	objectTags          map[string]string
	objectPurgeTags     bool
	objectCopyBucket    string
	objectCopyKey       string
	objectCopyVersion   string
	objectEncrypt       bool
	objectEncryptMode   string
	objectKMSKeyID      string
	objectPrefix        string
	objectMarker        string
	objectMaxKeys       int32
	objectLocation      string
	objectNoValidate    bool
	objectSkipNameCheck bool
	objectCheckMode     bool
)

// objectCmd runs one reconciliation operation against a bucket.
var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Reconcile an object in an S3-compatible bucket",
	Long: `Reconcile the desired state of an object against a bucket.

The operation is selected with --mode:

  put     upload content from --src, --content or --content-base64
  get     download the object to --dest
  getstr  print the object contents
  geturl  issue a presigned download URL
  delobj  delete a single object
  delete  drain and delete the whole bucket (deprecated)
  create  create a bucket or virtual directory (deprecated)
  copy    copy an object from another bucket
  list    list keys in the bucket

Examples:
  # Upload a file, skipping when content already matches
  object --bucket my-bucket --key backup.tar --mode put --src ./backup.tar

  # Download, only if remote content differs from the local copy
  object --bucket my-bucket --key backup.tar --mode get --dest ./backup.tar

  # Copy between buckets with fresh tags
  object --bucket dst --mode copy --copy-bucket src --copy-key data.bin \
    --tag env=prod --purge-tags`,
	RunE: runObject,
}

func init() {
	f := objectCmd.Flags()

	f.StringVar(&objectBucket, "bucket", "", "Bucket to operate on (required)")
	f.StringVar(&objectKey, "key", "", "Object key")
	f.StringVar(&objectVersionID, "version-id", "", "Object version to address")
	f.StringVar(&objectMode, "mode", "", "Operation: put, get, getstr, geturl, delobj, delete, create, copy or list (required)")
	f.StringVar(&objectSrc, "src", "", "Local file to upload (mode put)")
	f.StringVar(&objectContent, "content", "", "Literal content to upload (mode put)")
	f.StringVar(&objectContentBase64, "content-base64", "", "Base64-encoded content to upload (mode put)")
	f.StringVar(&objectDest, "dest", "", "Local destination path (mode get)")
	f.StringVar(&objectOverwrite, "overwrite", "different", "Overwrite policy: always, never, different or latest")
	f.IntVar(&objectRetries, "retries", 0, "Extra download attempts on transient faults")
	f.IntVar(&objectExpiry, "expiry", 600, "Presigned URL lifetime in seconds")
	f.StringToStringVar(&objectMetadata, "metadata", nil, "Object metadata as key=value pairs")
	f.StringToStringVar(&objectHeaders, "header", nil, "Request headers as key=value pairs")
	f.StringSliceVar(&objectPermissions, "permission", nil, "Canned ACLs to apply")
	f.StringToStringVar(&objectTags, "tag", nil, "Desired object tags as key=value pairs")
	f.BoolVar(&objectPurgeTags, "purge-tags", false, "Replace the remote tag set instead of merging")
	f.StringVar(&objectCopyBucket, "copy-bucket", "", "Source bucket (mode copy)")
	f.StringVar(&objectCopyKey, "copy-key", "", "Source key (mode copy)")
	f.StringVar(&objectCopyVersion, "copy-version-id", "", "Source version (mode copy)")
	f.BoolVar(&objectEncrypt, "encrypt", false, "Request server-side encryption on upload")
	f.StringVar(&objectEncryptMode, "encryption-mode", "AES256", "Server-side encryption mode: AES256 or aws:kms")
	f.StringVar(&objectKMSKeyID, "kms-key-id", "", "KMS key for aws:kms encryption")
	f.StringVar(&objectPrefix, "prefix", "", "Key prefix filter (mode list)")
	f.StringVar(&objectMarker, "marker", "", "List keys after this marker (mode list)")
	f.Int32Var(&objectMaxKeys, "max-keys", 1000, "Maximum number of keys to return (mode list)")
	f.StringVar(&objectLocation, "location", "", "Location constraint for bucket creation")
	f.BoolVar(&objectNoValidate, "no-validate", false, "Treat forbidden lookups as existing instead of failing")
	f.BoolVar(&objectSkipNameCheck, "skip-bucket-name-check", false, "Skip S3 bucket naming rule validation")
	f.BoolVar(&objectCheckMode, "check", false, "Report what would change without mutating anything")

	_ = objectCmd.MarkFlagRequired("bucket")
	_ = objectCmd.MarkFlagRequired("mode")

	RootCmd.AddCommand(objectCmd)
}

func runObject(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	// Connect to storage
	client, err := storage.NewClient(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	svc := object.NewService(client.API(), client.Presign(), client.Redial, l)

	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	reportResult(l, req, result)
	return nil
}

// buildRequest maps the command flags onto a reconciliation request.
func buildRequest(cmd *cobra.Command) (*object.Request, error) {
	mode, err := object.ParseMode(objectMode)
	if err != nil {
		return nil, err
	}
	overwrite, err := object.ParseOverwrite(objectOverwrite)
	if err != nil {
		return nil, err
	}

	req := &object.Request{
		Bucket:             objectBucket,
		Key:                objectKey,
		VersionID:          objectVersionID,
		Mode:               mode,
		Src:                objectSrc,
		Content:            objectContent,
		ContentBase64:      objectContentBase64,
		Dest:               objectDest,
		Overwrite:          overwrite,
		Retries:            objectRetries,
		ExpirySeconds:      objectExpiry,
		Metadata:           objectMetadata,
		Headers:            objectHeaders,
		Permissions:        objectPermissions,
		PurgeTags:          objectPurgeTags,
		Encrypt:            objectEncrypt,
		EncryptionMode:     objectEncryptMode,
		KMSKeyID:           objectKMSKeyID,
		Prefix:             objectPrefix,
		Marker:             objectMarker,
		MaxKeys:            objectMaxKeys,
		LocationConstraint: objectLocation,
		Validate:           !objectNoValidate,
		ValidateBucketName: !objectSkipNameCheck,
		CheckMode:          objectCheckMode,
	}

	// An explicitly empty --tag set combined with --purge-tags removes
	// all tags; an absent flag leaves tags alone.
	if cmd.Flags().Changed("tag") {
		if objectTags == nil {
			objectTags = map[string]string{}
		}
		req.Tags = objectTags
	}

	if objectCopyBucket != "" || objectCopyKey != "" {
		req.CopySrc = &object.CopySource{
			Bucket:    objectCopyBucket,
			Key:       objectCopyKey,
			VersionID: objectCopyVersion,
		}
	}

	return req, nil
}

// reportResult logs the outcome fields relevant to the executed mode.
func reportResult(l *zap.Logger, req *object.Request, result *object.Result) {
	fields := []zap.Field{
		zap.Bool("changed", result.Changed),
		zap.String("msg", result.Message),
	}
	if result.URL != "" {
		fields = append(fields, zap.String("url", result.URL))
	}
	if result.Tags != nil {
		fields = append(fields, zap.Any("tags", result.Tags))
	}
	if result.Keys != nil {
		fields = append(fields, zap.Int("key_count", len(result.Keys)))
	}
	l.Info("operation complete", fields...)

	if result.Contents != "" {
		fmt.Print(result.Contents)
	}
	for _, key := range result.Keys {
		fmt.Println(key)
	}
}
