package opshttp

import (
	"net/http"

	"github.com/keithlinneman/healthili/health"
)

type Options struct {
	Host        string
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	// Ready backs /-/ready; nil is always ready.
	Ready   health.Check
	OnPanic func()
}
