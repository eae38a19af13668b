package checks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// HeadBucketAPI is the slice of the S3 client the bucket check needs.
type HeadBucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Bucket passes when the bucket exists and the caller can reach it.
func S3Bucket(api HeadBucketAPI, bucket string) (health.Check, error) {
	if bucket == "" {
		return nil, xerrors.New("s3 target needs a bucket name")
	}
	return func(ctx context.Context) (health.Outcome, error) {
		if _, err := api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return nil, xerrors.Wrapf(err, "head bucket %s", bucket)
		}
		return health.Pass, nil
	}, nil
}
