package health

import "net/http"

// Status is the canonical health status reported in the payload.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

func (s Status) String() string { return string(s) }

// HTTPStatus is 200 for pass and warn, 500 otherwise.
func (s Status) HTTPStatus() int {
	switch s {
	case StatusPass, StatusWarn:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Classify maps a check result to a status and HTTP code. Any error fails;
// otherwise true and "pass" pass, "warn" warns and everything else fails.
func Classify(o Outcome, err error) (Status, int) {
	s := StatusFail
	if err == nil {
		switch o {
		case Bool(true), Pass:
			s = StatusPass
		case Warn:
			s = StatusWarn
		}
	}
	return s, s.HTTPStatus()
}
