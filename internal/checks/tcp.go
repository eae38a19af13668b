package checks

import (
	"context"
	"net"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// TCP passes when addr accepts a connection.
func TCP(addr string) (health.Check, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, xerrors.Wrapf(err, "invalid tcp target %q", addr)
	}
	var d net.Dialer
	return func(ctx context.Context) (health.Outcome, error) {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		_ = conn.Close()
		return health.Pass, nil
	}, nil
}
