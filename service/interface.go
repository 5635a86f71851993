// Package service runs the long-lived parts of a session (audio device,
// alarm scheduler, metrics endpoint) in dependency order.
package service

import "time"

// Env carries the session settings services pick up during Init
type Env struct {
	// Location evaluates alarm wall-clock times; nil keeps the service default
	Location *time.Location
	// Muted keeps the audio device closed
	Muted bool
}

// Service is a subsystem with background resources
// Construction, then Init(env), Start, and finally Stop, which must be idempotent
type Service interface {
	Name() string
	// Dependencies names services that must be initialized and started first
	Dependencies() []string
	Init(env Env) error
	Start() error
	Stop() error
}
