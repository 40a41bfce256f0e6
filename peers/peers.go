// Package peers builds partner clients from configuration and registers
// them with the hub.
package peers

import (
	"evroaming/central"
	"evroaming/client"
	"evroaming/internal"
	"evroaming/internal/config"
	"evroaming/metrics/counters"
	"evroaming/oicp"
	"fmt"
	"io"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Client is what a hub needs from a partner connection.
type Client interface {
	central.CPOClient
	central.EMPClient
	io.Closer
}

type Factory func(partner config.Partner) Client

// HTTPFactory returns a factory of JSON/HTTP clients.
func HTTPFactory(timeout time.Duration, logger internal.LogHandler) Factory {
	return func(partner config.Partner) Client {
		c := client.New(partner.Url, partner.Token, timeout)
		c.SetLogger(logger)
		return c
	}
}

type Summary struct {
	Operators int
	Providers int
	Skipped   []string
}

// Compatible reports whether a partner speaking version satisfies constraint.
func Compatible(constraint *semver.Constraints, version string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("partner version %q: %w", version, err)
	}
	return constraint.Check(v), nil
}

// Load registers every configured operator and provider with hub. A partner
// that cannot be used is logged and skipped; only a bad constraint fails.
func Load(conf *config.Config, hub *central.Service, factory Factory, logger internal.LogHandler) (*Summary, error) {
	constraint, err := semver.NewConstraint(conf.Protocol.Constraint)
	if err != nil {
		return nil, fmt.Errorf("protocol constraint %q: %w", conf.Protocol.Constraint, err)
	}
	hub.CPOs.SetOnChange(func(count int) { counters.ObservePeers(config.RoleCPO, count) })
	hub.EMPs.SetOnChange(func(count int) { counters.ObservePeers(config.RoleEMP, count) })

	summary := &Summary{}
	skip := func(role string, partner config.Partner, reason string) {
		summary.Skipped = append(summary.Skipped, fmt.Sprintf("%s %s: %s", role, partner.ID, reason))
		if logger != nil {
			logger.Warn(fmt.Sprintf("skipping %s %s: %s", role, partner.ID, reason))
		}
	}
	usable := func(role string, partner config.Partner) bool {
		if partner.Url == "" {
			skip(role, partner, "no url")
			return false
		}
		version := partner.Version
		if version == "" {
			version = conf.Protocol.Version
		}
		ok, err := Compatible(constraint, version)
		if err != nil {
			skip(role, partner, err.Error())
			return false
		}
		if !ok {
			skip(role, partner, fmt.Sprintf("version %s does not satisfy %s", version, constraint))
			return false
		}
		return true
	}

	for _, partner := range conf.Operators {
		id, err := oicp.ParseOperatorID(partner.ID)
		if err != nil {
			skip("operator", partner, err.Error())
			continue
		}
		if !usable("operator", partner) {
			continue
		}
		c := factory(partner)
		if !hub.RegisterCPO(id, c) {
			_ = c.Close()
			skip("operator", partner, "duplicate id")
			continue
		}
		summary.Operators++
		if logger != nil {
			logger.FeatureEvent("peers", id.String(), fmt.Sprintf("operator %s registered at %s", partner.Name, partner.Url))
		}
	}

	for _, partner := range conf.Providers {
		id, err := oicp.ParseProviderID(partner.ID)
		if err != nil {
			skip("provider", partner, err.Error())
			continue
		}
		if !usable("provider", partner) {
			continue
		}
		c := factory(partner)
		if !hub.RegisterEMP(id, c) {
			_ = c.Close()
			skip("provider", partner, "duplicate id")
			continue
		}
		summary.Providers++
		if logger != nil {
			logger.FeatureEvent("peers", id.String(), fmt.Sprintf("provider %s registered at %s", partner.Name, partner.Url))
		}
	}
	return summary, nil
}
