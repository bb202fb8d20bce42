// Package session wraps a greeter.Greeter and a transport.GroupChannel into
// a running group chat: it drives the Greeter off channel events, exposes
// SendData/OnData for application payloads once a session key exists, and
// expires idle or over-age sessions the way the teacher's core/session
// package expires its point-to-point ones.
package session

import "time"

// Config defines session lifecycle policy, carried over field-for-field
// from the teacher's core/session.Config.
type Config struct {
	MaxAge      time.Duration
	IdleTimeout time.Duration
	MaxMessages int
}

// DefaultConfig mirrors the teacher's core/session.NewManager defaults.
func DefaultConfig() Config {
	return Config{
		MaxAge:      time.Hour,
		IdleTimeout: 10 * time.Minute,
		MaxMessages: 1000,
	}
}

// Stats summarizes the sessions a Manager currently tracks.
type Stats struct {
	TotalSessions   int
	ActiveSessions  int
	ExpiredSessions int
}
