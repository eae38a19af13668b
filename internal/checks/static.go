package checks

import (
	"strings"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// Static reports a fixed outcome.
func Static(v string) (health.Check, error) {
	switch strings.ToLower(v) {
	case "pass":
		return health.Fixed(health.Pass), nil
	case "warn":
		return health.Fixed(health.Warn), nil
	case "fail":
		return health.Fixed(health.Fail), nil
	case "true":
		return health.Fixed(health.Bool(true)), nil
	case "false":
		return health.Fixed(health.Bool(false)), nil
	}
	return nil, xerrors.Newf("invalid static outcome %q", v)
}
