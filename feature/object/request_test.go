package object

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{"Put", "put", ModePut, false},
		{"Get", "get", ModeGet, false},
		{"GetStr", "getstr", ModeGetStr, false},
		{"GetURL", "geturl", ModeGetURL, false},
		{"DelObj", "delobj", ModeDelObj, false},
		{"Delete", "delete", ModeDelete, false},
		{"Create", "create", ModeCreate, false},
		{"Copy", "copy", ModeCopy, false},
		{"List", "list", ModeList, false},
		{"Unknown", "upload", 0, true},
		{"Empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseOverwrite(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OverwritePolicy
		wantErr bool
	}{
		{"Empty", "", OverwriteDifferent, false},
		{"Different", "different", OverwriteDifferent, false},
		{"Always", "always", OverwriteAlways, false},
		{"Never", "never", OverwriteNever, false},
		{"Latest", "latest", OverwriteLatest, false},
		{"LegacyTrue", "true", OverwriteAlways, false},
		{"LegacyYes", "yes", OverwriteAlways, false},
		{"LegacyFalse", "false", OverwriteNever, false},
		{"LegacyNo", "no", OverwriteNever, false},
		{"MixedCase", "ALWAYS", OverwriteAlways, false},
		{"Unknown", "sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOverwrite(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr bool
	}{
		{"Simple", "my-bucket", false},
		{"WithDots", "my.bucket.backups", false},
		{"MinLength", "abc", false},
		{"TooShort", "ab", true},
		{"MaxLength", strings.Repeat("a", 63), false},
		{"OverLong", strings.Repeat("a", 64), true},
		{"Uppercase", "My-Bucket", true},
		{"LeadingHyphen", "-bucket", true},
		{"TrailingDot", "bucket.", true},
		{"ConsecutiveDots", "my..bucket", true},
		{"IPAddress", "192.168.1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBucketName(tt.bucket)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	src := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	t.Run("MissingBucket", func(t *testing.T) {
		req := &Request{Mode: ModeList}
		err := req.validate()
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("BucketNameEnforced", func(t *testing.T) {
		req := &Request{Bucket: "Bad_Bucket", Mode: ModeList, ValidateBucketName: true}
		assert.Error(t, req.validate())
	})

	t.Run("BucketNameSkipped", func(t *testing.T) {
		req := &Request{Bucket: "Bad_Bucket", Mode: ModeList}
		assert.NoError(t, req.validate())
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Mode: ModeList}
		require.NoError(t, req.validate())
		assert.Equal(t, defaultExpirySeconds, req.ExpirySeconds)
	})

	t.Run("PutRequiresKey", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Mode: ModePut, Content: "x"}
		assert.ErrorContains(t, req.validate(), "object is required")
	})

	t.Run("PutRequiresSource", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Key: "k", Mode: ModePut}
		assert.ErrorContains(t, req.validate(), "must be specified")
	})

	t.Run("PutSourcesExclusive", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Key: "k", Mode: ModePut, Content: "x", Src: src}
		assert.ErrorContains(t, req.validate(), "mutually exclusive")
	})

	t.Run("PutMissingLocalFile", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Key: "k", Mode: ModePut, Src: "/nonexistent/file"}
		assert.ErrorContains(t, req.validate(), "does not exist")
	})

	t.Run("PutValid", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Key: "k", Mode: ModePut, Src: src}
		assert.NoError(t, req.validate())
	})

	t.Run("GetRequiresDest", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Key: "k", Mode: ModeGet}
		assert.ErrorContains(t, req.validate(), "dest is required")
	})

	t.Run("DeleteRejectsKey", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Key: "k", Mode: ModeDelete}
		assert.ErrorContains(t, req.validate(), "cannot be used")
	})

	t.Run("CopyRequiresSource", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Mode: ModeCopy}
		assert.ErrorContains(t, req.validate(), "copy_src is required")

		req.CopySrc = &CopySource{Bucket: "other"}
		assert.ErrorContains(t, req.validate(), "both bucket and object")
	})

	t.Run("UnknownPermission", func(t *testing.T) {
		req := &Request{Bucket: "my-bucket", Mode: ModeList, Permissions: []string{"world-writable"}}
		assert.ErrorContains(t, req.validate(), "unknown permission")
	})

	t.Run("KnownPermissions", func(t *testing.T) {
		req := &Request{
			Bucket:      "my-bucket",
			Mode:        ModeList,
			Permissions: []string{"private", "public-read", "bucket-owner-full-control"},
		}
		assert.NoError(t, req.validate())
	})
}

func TestContentSource(t *testing.T) {
	t.Run("Literal", func(t *testing.T) {
		req := &Request{Content: "hello"}
		src, err := req.contentSource()
		require.NoError(t, err)

		r, size, err := src.open()
		require.NoError(t, err)
		defer r.Close()
		assert.Equal(t, int64(5), size)
	})

	t.Run("Base64", func(t *testing.T) {
		req := &Request{ContentBase64: base64.StdEncoding.EncodeToString([]byte("hello"))}
		src, err := req.contentSource()
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), src.data)
	})

	t.Run("Base64Invalid", func(t *testing.T) {
		req := &Request{ContentBase64: "not base64!!!"}
		_, err := req.contentSource()
		assert.Error(t, err)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payload.bin")
		require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

		req := &Request{Src: path}
		src, err := req.contentSource()
		require.NoError(t, err)

		r, size, err := src.open()
		require.NoError(t, err)
		defer r.Close()
		assert.Equal(t, int64(7), size)
	})
}
