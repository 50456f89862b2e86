package object

import (
	"context"
	"fmt"
	"time"

	"s3-object-manager/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// Result is the outcome of one reconciliation run. Only the fields that
// apply to the executed mode are populated.
type Result struct {
	Changed  bool
	Message  string
	URL      string
	Contents string
	Tags     map[string]string
	Keys     []string
}

// workflowState holds the remote facts gathered once before dispatch and
// shared by every handler.
type workflowState struct {
	bucketPresent bool
	// aclDisabled is set when bucket ownership enforcement turns ACLs off;
	// requested permissions are then skipped instead of failing every put.
	aclDisabled bool
	bucketACL   []string
	objectACL   []string
}

// Service executes object reconciliation requests against one storage
// connection.
type Service struct {
	api       storage.API
	presigner storage.Presigner
	redial    storage.RedialFunc
	log       *zap.Logger
	// sleep is swapped out by tests to skip the poll and retry waits.
	sleep func(time.Duration)
}

// NewService wires a reconciliation service over an established storage
// connection.
func NewService(api storage.API, presigner storage.Presigner, redial storage.RedialFunc, log *zap.Logger) *Service {
	return &Service{
		api:       api,
		presigner: presigner,
		redial:    redial,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Run validates the request, gathers the shared remote state and
// dispatches to the handler for the requested mode.
func (s *Service) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	state, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModePut:
		return s.doPut(ctx, req, state)
	case ModeGet:
		return s.doGet(ctx, req)
	case ModeGetStr:
		return s.doGetStr(ctx, req)
	case ModeGetURL:
		return s.doGetURL(ctx, req)
	case ModeDelObj:
		return s.doDelObj(ctx, req)
	case ModeDelete:
		return s.doDelete(ctx, req, state)
	case ModeCreate:
		return s.doCreate(ctx, req, state)
	case ModeCopy:
		return s.doCopy(ctx, req, state)
	case ModeList:
		return s.doList(ctx, req)
	default:
		return nil, validationErrorf("unknown mode %q", req.Mode)
	}
}

// Modes that create the bucket themselves, or for which an absent bucket
// is a valid starting state rather than an error.
func modeToleratesAbsentBucket(m Mode) bool {
	switch m {
	case ModePut, ModeCreate, ModeDelete, ModeCopy:
		return true
	}
	return false
}

// prepare probes the bucket, resolves whether ACLs are enforceable, and
// partitions the requested permissions.
func (s *Service) prepare(ctx context.Context, req *Request) (*workflowState, error) {
	state := &workflowState{}
	state.bucketACL, state.objectACL = partitionACLs(req.Permissions)

	presence, err := s.probeBucket(ctx, req.Bucket)
	switch presence {
	case Present:
		state.bucketPresent = true
	case Ambiguous:
		if req.Validate {
			return nil, fmt.Errorf("permission denied accessing bucket %s: %w", req.Bucket, err)
		}
		state.bucketPresent = true
	default:
		if err != nil {
			return nil, err
		}
	}

	if !state.bucketPresent && req.Validate && !modeToleratesAbsentBucket(req.Mode) {
		return nil, fmt.Errorf("source bucket %s cannot be found", req.Bucket)
	}

	if state.bucketPresent && len(req.Permissions) > 0 {
		state.aclDisabled = s.bucketACLsDisabled(ctx, req.Bucket)
	}

	return state, nil
}

// bucketACLsDisabled checks whether bucket owner enforcement has turned
// ACLs off. Probe failures resolve to false; a wrong guess surfaces later
// as an ACL application error.
func (s *Service) bucketACLsDisabled(ctx context.Context, bucket string) bool {
	out, err := s.api.GetBucketOwnershipControls(ctx, &s3.GetBucketOwnershipControlsInput{
		Bucket: aws.String(bucket),
	})
	if err != nil || out.OwnershipControls == nil {
		return false
	}
	for _, rule := range out.OwnershipControls.Rules {
		if rule.ObjectOwnership == types.ObjectOwnershipBucketOwnerEnforced {
			return true
		}
	}
	return false
}

// createBucket creates the bucket and applies any requested bucket ACLs.
func (s *Service) createBucket(ctx context.Context, req *Request, state *workflowState) error {
	if req.CheckMode {
		return nil
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(req.Bucket)}
	if req.LocationConstraint != "" && req.LocationConstraint != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(req.LocationConstraint),
		}
	}
	if _, err := s.api.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("failed while creating bucket %s: %w", req.Bucket, err)
	}

	if !state.aclDisabled {
		if err := s.applyBucketACLs(ctx, req.Bucket, state.bucketACL); err != nil {
			return fmt.Errorf("failed to apply permissions to bucket %s: %w", req.Bucket, err)
		}
	}

	state.bucketPresent = true
	return nil
}
