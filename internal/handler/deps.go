package handler

import (
	"github.com/benbjohnson/clock"

	"callrelay/internal/app/credential"
	"callrelay/internal/app/history"
	"callrelay/internal/app/signaling"
	"callrelay/internal/configs"
)

// AppDeps bundles what the HTTP handlers need.
type AppDeps struct {
	Manager *signaling.Manager
	Config  *configs.AppConfig
	Issuer  credential.Issuer
	History history.Store

	// Clock reports elapsed time for running calls; nil uses wall time.
	Clock clock.Clock
}

func (d *AppDeps) clock() clock.Clock {
	if d.Clock == nil {
		return clock.New()
	}
	return d.Clock
}
