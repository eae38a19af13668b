package health

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/keithlinneman/healthili/internal/xerrors"
)

// Value is an optional payload field holding a string or a number. The zero
// Value is unset and left out of the payload.
type Value struct {
	v any
}

func Str(s string) Value         { return Value{v: s} }
func Int(n int64) Value          { return Value{v: n} }
func Float(f float64) Value      { return Value{v: f} }
func Number(n json.Number) Value { return Value{v: n} }

func (v Value) IsZero() bool { return v.v == nil }

// String renders the value for logs and flags; "" when unset.
func (v Value) String() string {
	switch x := v.v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case json.Number:
		return x.String()
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	if n, ok := v.v.(json.Number); ok {
		if _, err := n.Float64(); err != nil {
			return nil, xerrors.Wrapf(err, "invalid number %q", string(n))
		}
		return []byte(n), nil
	}
	if f, ok := v.v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil, xerrors.Newf("non-finite number %v", f)
	}
	return json.Marshal(v.v)
}

func (v Value) validate() error {
	if v.IsZero() {
		return nil
	}
	_, err := v.MarshalJSON()
	return err
}

// UnmarshalJSON accepts a JSON string or number; numbers keep their literal.
func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return xerrors.Wrap(err, "decode value")
	}
	switch t := x.(type) {
	case nil:
		*v = Value{}
	case string:
		*v = Str(t)
	case json.Number:
		*v = Number(t)
	default:
		return xerrors.Newf("value must be a string or number, got %s", b)
	}
	return nil
}

// Payload is the application/health+json response body.
type Payload struct {
	Status      Status  `json:"status"`
	ServiceID   Value   `json:"serviceId,omitzero"`
	Version     Value   `json:"version,omitzero"`
	ReleaseID   Value   `json:"releaseId,omitzero"`
	Description string  `json:"description,omitempty"`
	Output      *string `json:"output,omitempty"`
}

// BuildPayload assembles the body for status. Metadata comes from opts; the
// failure message is included unless opts.HideError is set.
func BuildPayload(status Status, err error, opts Options) Payload {
	p := Payload{
		Status:      status,
		ServiceID:   opts.ServiceID,
		Version:     opts.Version,
		ReleaseID:   opts.ReleaseID,
		Description: opts.Description,
	}
	if err != nil && !opts.HideError {
		msg := err.Error()
		p.Output = &msg
	}
	return p
}
