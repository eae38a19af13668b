package checks

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

const maxUpstreamBody = 64 << 10

var defaultHTTPClient = &http.Client{
	Timeout:   10 * time.Second,
	Transport: otelhttp.NewTransport(http.DefaultTransport),
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// HTTP GETs target. An application/health+json answer is taken at its word,
// so an upstream "warn" stays a warn. Otherwise any 2xx passes.
func HTTP(client *http.Client, target string) (health.Check, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, xerrors.Newf("invalid http target %q", target)
	}
	return func(ctx context.Context) (health.Outcome, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", health.ContentType+", */*;q=0.5")

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == health.ContentType {
			var p health.Payload
			if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpstreamBody)).Decode(&p); err != nil {
				return nil, xerrors.Wrap(err, "decode upstream health payload")
			}
			if p.Output != nil && p.Status == health.StatusFail {
				return nil, xerrors.Newf("upstream fail: %s", *p.Output)
			}
			return health.Text(p.Status), nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUpstreamBody))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, xerrors.Newf("unexpected status %d from %s", resp.StatusCode, u.Redacted())
		}
		return health.Pass, nil
	}, nil
}
