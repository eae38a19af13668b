// Package checks builds health checks for the healthili daemon from target
// strings such as "tcp://db:5432" or "s3://my-bucket".
package checks

import (
	"context"
	"net/http"
	"strings"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// Builder turns targets into checks. Zero fields get working defaults, except
// NewS3 which is required for s3:// targets.
type Builder struct {
	HTTPClient *http.Client
	NewS3      func(ctx context.Context) (HeadBucketAPI, error)
}

// Build parses target and returns its check. Supported forms:
//
//	static:pass | static:warn | static:fail | static:true | static:false
//	tcp://host:port
//	http://... | https://...
//	s3://bucket
func (b Builder) Build(ctx context.Context, target string) (health.Check, error) {
	scheme, rest, ok := strings.Cut(target, ":")
	if !ok || rest == "" {
		return nil, xerrors.Newf("invalid check target %q", target)
	}
	switch strings.ToLower(scheme) {
	case "static":
		return Static(rest)
	case "tcp":
		return TCP(strings.TrimPrefix(rest, "//"))
	case "http", "https":
		return HTTP(b.httpClient(), target)
	case "s3":
		if b.NewS3 == nil {
			return nil, xerrors.New("s3 checks need an AWS client")
		}
		api, err := b.NewS3(ctx)
		if err != nil {
			return nil, xerrors.Wrap(err, "create s3 client")
		}
		return S3Bucket(api, strings.TrimPrefix(rest, "//"))
	default:
		return nil, xerrors.Newf("unsupported check scheme %q", scheme)
	}
}

func (b Builder) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return defaultHTTPClient
}
