// Package object reconciles the desired state of a single object in an
// S3-compatible bucket against the observed remote state, issuing the
// minimal set of mutating calls needed to converge.
//
// A validated Request is routed through the Service dispatcher to exactly
// one of nine operations (put, get, getstr, geturl, delobj, delete,
// create, copy, list). The workflows share a set of small components:
//
//   - existence probes distinguishing present, absent and
//     ambiguous-forbidden remote state
//   - a fingerprint comparator deciding, under the configured overwrite
//     policy, whether a transfer can be skipped
//   - a transfer engine with a bounded retry loop and a one-time
//     signature-version-4 reconnect recovery
//   - a canned ACL applier that tolerates backends without ACL support
//   - a tag convergence loop polling until the remote tag set matches
//     the computed target
//   - a bulk delete pager draining every version and delete marker of a
//     bucket before removing the bucket itself
//   - a presigned URL issuer for GET and PUT access
//
// Every operation is safe to re-run; check mode short-circuits each
// mutating call and reports the action that would occur.
package object
