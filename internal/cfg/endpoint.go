package cfg

import (
	"encoding/json"
	"strconv"

	"github.com/keithlinneman/healthili/health"
)

// PayloadValue maps a flag value to a payload field. Empty means unset and a
// literal JSON number is sent as a number, so -service-version=1 yields 1.
func PayloadValue(s string) health.Value {
	if s == "" {
		return health.Value{}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return health.Number(json.Number(s))
	}
	return health.Str(s)
}

// HealthOptions maps the endpoint flags to health.Options. Ambient fields
// (logger, metrics, tracing) are left for the caller.
func (c App) HealthOptions() health.Options {
	return health.Options{
		ServiceID:   PayloadValue(c.ServiceID),
		Description: c.Description,
		Version:     PayloadValue(c.ServiceVersion),
		ReleaseID:   PayloadValue(c.ReleaseID),
		Host:        c.Host,
		Port:        c.Port,
		Path:        c.Path,
		HideError:   c.HideError,
		Timeout:     c.CheckTimeout,
	}
}
