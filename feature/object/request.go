package object

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strings"
	"time"
)

// Mode selects one of the nine reconciliation operations.
type Mode int

const (
	ModePut Mode = iota
	ModeGet
	ModeGetStr
	ModeGetURL
	ModeDelObj
	ModeDelete
	ModeCreate
	ModeCopy
	ModeList
)

var modeNames = map[Mode]string{
	ModePut:    "put",
	ModeGet:    "get",
	ModeGetStr: "getstr",
	ModeGetURL: "geturl",
	ModeDelObj: "delobj",
	ModeDelete: "delete",
	ModeCreate: "create",
	ModeCopy:   "copy",
	ModeList:   "list",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode maps a mode name onto the closed operation set. Unknown names
// are rejected here so dispatch never sees one.
func ParseMode(s string) (Mode, error) {
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, validationErrorf("unknown mode %q (expected one of put, get, getstr, geturl, delobj, delete, create, copy, list)", s)
}

// OverwritePolicy decides whether a transfer is needed when the target
// already exists.
type OverwritePolicy int

const (
	// OverwriteDifferent transfers only when the content fingerprints differ.
	OverwriteDifferent OverwritePolicy = iota
	// OverwriteAlways transfers unconditionally.
	OverwriteAlways
	// OverwriteNever never transfers over an existing target.
	OverwriteNever
	// OverwriteLatest transfers unless the local file is at least as new
	// as the remote object.
	OverwriteLatest
)

func (p OverwritePolicy) String() string {
	switch p {
	case OverwriteAlways:
		return "always"
	case OverwriteNever:
		return "never"
	case OverwriteLatest:
		return "latest"
	default:
		return "different"
	}
}

// ParseOverwrite maps a policy name onto the policy enum. Legacy boolean
// spellings are accepted: truthy means always, falsy means never. An
// empty value selects the default, different.
func ParseOverwrite(s string) (OverwritePolicy, error) {
	switch strings.ToLower(s) {
	case "", "different":
		return OverwriteDifferent, nil
	case "always", "true", "yes", "on", "1":
		return OverwriteAlways, nil
	case "never", "false", "no", "off", "0":
		return OverwriteNever, nil
	case "latest":
		return OverwriteLatest, nil
	}
	return 0, validationErrorf("unknown overwrite policy %q (expected always, never, different or latest)", s)
}

// CopySource identifies the object a copy operation reads from.
type CopySource struct {
	Bucket    string
	Key       string
	VersionID string
}

// Request is the desired state for one reconciliation run. It is built
// once from caller input, validated, and then consumed by exactly one
// dispatch handler; handlers never mutate it.
type Request struct {
	Bucket    string
	Key       string
	VersionID string
	Mode      Mode

	// Local source for put: exactly one of these three.
	Src           string
	Content       string
	ContentBase64 string

	// Dest is the local path a get writes to.
	Dest string

	Overwrite OverwritePolicy
	// Retries bounds the download retry loop: the transfer is attempted
	// up to Retries+1 times.
	Retries int
	// ExpirySeconds is the lifetime of issued presigned URLs.
	ExpirySeconds int

	Metadata    map[string]string
	Headers     map[string]string
	Permissions []string

	// Tags is the desired tag set; nil leaves tags alone. PurgeTags
	// replaces the remote set instead of merging into it.
	Tags      map[string]string
	PurgeTags bool

	CopySrc *CopySource

	Encrypt        bool
	EncryptionMode string
	KMSKeyID       string

	// List parameters.
	Prefix  string
	Marker  string
	MaxKeys int32

	// LocationConstraint is sent when a bucket has to be created.
	LocationConstraint string

	// Validate makes an unreachable (forbidden) bucket or object fatal.
	// Callers that lack head permission but hold the more specific
	// permission for the actual operation switch it off.
	Validate bool
	// ValidateBucketName enforces S3 bucket naming rules.
	ValidateBucketName bool
	// CheckMode short-circuits every mutating call.
	CheckMode bool
}

const defaultExpirySeconds = 600

var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]+[a-z0-9]$`)

// validateBucketName enforces the S3 naming rules: 3-63 characters,
// lowercase letters, digits, hyphens and dots, alphanumeric at both ends,
// no consecutive dots, not an IPv4 literal.
func validateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return validationErrorf("bucket name %q must be between 3 and 63 characters", name)
	}
	if !bucketNameRe.MatchString(name) {
		return validationErrorf("bucket name %q may only consist of lowercase letters, digits, hyphens and dots, and must begin and end with a letter or digit", name)
	}
	if strings.Contains(name, "..") {
		return validationErrorf("bucket name %q must not contain consecutive dots", name)
	}
	if net.ParseIP(name) != nil {
		return validationErrorf("bucket name %q must not be formatted as an IP address", name)
	}
	return nil
}

// validate checks the request against the per-mode requirements and
// applies defaults. It is called once, before any remote call.
func (r *Request) validate() error {
	if r.Bucket == "" {
		return validationErrorf("bucket is required")
	}
	if r.ValidateBucketName {
		if err := validateBucketName(r.Bucket); err != nil {
			return err
		}
	}

	if r.ExpirySeconds <= 0 {
		r.ExpirySeconds = defaultExpirySeconds
	}
	if r.Retries < 0 {
		return validationErrorf("retries must not be negative")
	}

	for _, acl := range r.Permissions {
		if !isBucketACL(acl) && !isObjectACL(acl) {
			return validationErrorf("unknown permission %q", acl)
		}
	}

	switch r.Mode {
	case ModePut:
		if r.Key == "" {
			return validationErrorf("object is required when mode is put")
		}
		sources := 0
		for _, set := range []bool{r.Src != "", r.Content != "", r.ContentBase64 != ""} {
			if set {
				sources++
			}
		}
		if sources == 0 {
			return validationErrorf("one of content, content_base64 or src must be specified when mode is put")
		}
		if sources > 1 {
			return validationErrorf("content, content_base64 and src are mutually exclusive")
		}
		if r.Src != "" {
			if _, err := os.Stat(r.Src); err != nil {
				return validationErrorf("local object %q does not exist for PUT operation", r.Src)
			}
		}
	case ModeGet:
		if r.Key == "" {
			return validationErrorf("object is required when mode is get")
		}
		if r.Dest == "" {
			return validationErrorf("dest is required when mode is get")
		}
	case ModeGetStr, ModeGetURL, ModeDelObj:
		if r.Key == "" {
			return validationErrorf("object is required when mode is %s", r.Mode)
		}
	case ModeDelete:
		// Prevents ambiguity with delobj.
		if r.Key != "" {
			return validationErrorf("object cannot be used when mode is delete")
		}
	case ModeCopy:
		if r.CopySrc == nil {
			return validationErrorf("copy_src is required when mode is copy")
		}
		if r.CopySrc.Bucket == "" || r.CopySrc.Key == "" {
			return validationErrorf("copy_src requires both bucket and object")
		}
	case ModeCreate, ModeList:
	default:
		return validationErrorf("unknown mode %q", r.Mode)
	}

	return nil
}

// expiry is the presigned URL lifetime as a duration.
func (r *Request) expiry() time.Duration {
	return time.Duration(r.ExpirySeconds) * time.Second
}

// contentSource resolves the local side of a transfer, either a file path
// or in-memory bytes.
type contentSource struct {
	path string
	data []byte
}

func (c contentSource) open() (io.ReadCloser, int64, error) {
	if c.path != "" {
		f, err := os.Open(c.path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open %s: %w", c.path, err)
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("failed to stat %s: %w", c.path, err)
		}
		return f, fi.Size(), nil
	}
	return io.NopCloser(bytes.NewReader(c.data)), int64(len(c.data)), nil
}

// contentSource materializes the put source declared on the request.
func (r *Request) contentSource() (contentSource, error) {
	switch {
	case r.Src != "":
		return contentSource{path: r.Src}, nil
	case r.ContentBase64 != "":
		data, err := base64.StdEncoding.DecodeString(r.ContentBase64)
		if err != nil {
			return contentSource{}, validationErrorf("content_base64 could not be decoded: %v", err)
		}
		return contentSource{data: data}, nil
	default:
		return contentSource{data: []byte(r.Content)}, nil
	}
}
