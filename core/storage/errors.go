package storage

import (
	"errors"
	"net"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// Backends that do not implement an optional operation (ACLs, tagging,
// versioned listing) answer with one of these codes instead of a hard
// failure.
var unsupportedOperationCodes = map[string]struct{}{
	"NotImplemented":                {},
	"XNotImplemented":               {},
	"MethodNotAllowed":              {},
	"AccessControlListNotSupported": {},
}

// errorCode extracts the service error code, if any.
func errorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

// statusCode extracts the HTTP status of the failed response, if any.
func statusCode(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

// IsNotFound reports whether err signals an absent bucket, key or version.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "NoSuchKey", "NoSuchBucket", "NotFound", "NoSuchVersion", "404":
		return true
	}
	return statusCode(err) == 404
}

// IsForbidden reports whether err signals an access-denied response. From
// the caller's point of view this is ambiguous with NotFound: heading an
// object without permission looks identical to heading a missing one.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "AccessDenied", "Forbidden", "403":
		return true
	}
	return statusCode(err) == 403
}

// IsUnsupported reports whether the backend does not implement the
// attempted operation. Distinct from NotFound/Forbidden: the workflows
// degrade these to warnings instead of failing.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := unsupportedOperationCodes[errorCode(err)]; ok {
		return true
	}
	return statusCode(err) == 501
}

// IsNoSuchTagSet reports whether a tagging read found no tag set, which
// some backends surface as an error rather than an empty set.
func IsNoSuchTagSet(err error) bool {
	switch errorCode(err) {
	case "NoSuchTagSet", "NoSuchTagSetError":
		return true
	}
	return false
}

// IsSigV4Required reports whether the backend rejected the request because
// it demands Signature Version 4 signing. Only recognizable by message
// pattern; the response carries no dedicated code.
func IsSigV4Required(err error) bool {
	return err != nil && strings.Contains(err.Error(), "require AWS Signature Version 4")
}

// IsTransient reports whether err is a transport-level or throttling-class
// fault worth retrying. Permission and not-found conditions are never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch errorCode(err) {
	case "RequestTimeout", "SlowDown", "InternalError", "ServiceUnavailable", "Throttling", "ThrottlingException":
		return true
	}

	return statusCode(err) >= 500
}
