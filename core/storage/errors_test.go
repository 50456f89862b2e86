package storage_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"s3-object-manager/core/storage"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "backend says no"}
}

func httpError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("backend says no"),
		},
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"NoSuchKey", apiError("NoSuchKey"), true},
		{"NoSuchBucket", apiError("NoSuchBucket"), true},
		{"NotFound", apiError("NotFound"), true},
		{"Numeric404", apiError("404"), true},
		{"Status404", httpError(404), true},
		{"Wrapped", fmt.Errorf("head failed: %w", apiError("NoSuchKey")), true},
		{"AccessDenied", apiError("AccessDenied"), false},
		{"Plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.IsNotFound(tt.err))
		})
	}
}

func TestIsForbidden(t *testing.T) {
	assert.True(t, storage.IsForbidden(apiError("AccessDenied")))
	assert.True(t, storage.IsForbidden(httpError(403)))
	assert.False(t, storage.IsForbidden(apiError("NoSuchKey")))
	assert.False(t, storage.IsForbidden(nil))
}

func TestIsUnsupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NotImplemented", apiError("NotImplemented"), true},
		{"XNotImplemented", apiError("XNotImplemented"), true},
		{"ACLNotSupported", apiError("AccessControlListNotSupported"), true},
		{"Status501", httpError(501), true},
		{"AccessDenied", apiError("AccessDenied"), false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.IsUnsupported(tt.err))
		})
	}
}

func TestIsNoSuchTagSet(t *testing.T) {
	assert.True(t, storage.IsNoSuchTagSet(apiError("NoSuchTagSet")))
	assert.True(t, storage.IsNoSuchTagSet(apiError("NoSuchTagSetError")))
	assert.False(t, storage.IsNoSuchTagSet(apiError("NoSuchKey")))
	assert.False(t, storage.IsNoSuchTagSet(nil))
}

func TestIsSigV4Required(t *testing.T) {
	err := &smithy.GenericAPIError{
		Code:    "InvalidRequest",
		Message: "The authorization mechanism you have provided is not supported. Please use AWS4-HMAC-SHA256. Requests to this bucket require AWS Signature Version 4",
	}
	assert.True(t, storage.IsSigV4Required(err))
	assert.False(t, storage.IsSigV4Required(apiError("InvalidRequest")))
	assert.False(t, storage.IsSigV4Required(nil))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"RequestTimeout", apiError("RequestTimeout"), true},
		{"SlowDown", apiError("SlowDown"), true},
		{"InternalError", apiError("InternalError"), true},
		{"Status503", httpError(503), true},
		{"AccessDenied", apiError("AccessDenied"), false},
		{"NoSuchKey", apiError("NoSuchKey"), false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.IsTransient(tt.err))
		})
	}
}
