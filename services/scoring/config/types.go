// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the master exercise configuration
// and the per-team override document.
//
// The master config is the static description of the exercise: teams,
// monitored systems, service defaults, and the grading interval. Team
// overrides are mutable credential/port adjustments written through the
// config UI; they live in a separate JSON document so editing them never
// touches the master file.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Team is one competing team. Index is the numeric component used to
// derive the team's network addressing (10.0.<index>.x).
type Team struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Secret      string `yaml:"secret" json:"-"`
	Index       int    `yaml:"index" json:"index" validate:"required,gt=0"`
}

// System is a monitored host definition. IPOffset is combined with a
// team's Index to produce that team's instance address.
type System struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	IPOffset    int      `yaml:"ip_offset" json:"ip_offset" validate:"required,gt=1,lt=255"`
	Services    []string `yaml:"services" json:"services"`
}

// ServiceDef holds per-service-kind defaults: credentials, port, the
// point value awarded per successful probe, and the probe timeout.
type ServiceDef struct {
	DisplayName     string `yaml:"display_name" json:"display_name"`
	DefaultUsername string `yaml:"default_username" json:"-"`
	DefaultPassword string `yaml:"default_password" json:"-"`
	DefaultDomain   string `yaml:"default_domain" json:"-"`
	DefaultPort     int    `yaml:"default_port" json:"default_port"`
	Points          int    `yaml:"points" json:"points"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Grading controls the cycle scheduler.
type Grading struct {
	IntervalSeconds     int `yaml:"interval_seconds" json:"interval_seconds"`
	MaxConcurrentProbes int `yaml:"max_concurrent_probes" json:"max_concurrent_probes"`
}

// Network controls address derivation. Prefix is the leading two octets
// of every derived address.
type Network struct {
	Prefix string `yaml:"prefix" json:"prefix"`
}

// Config is the full master configuration.
type Config struct {
	Teams    []Team                `yaml:"teams" json:"teams" validate:"required,min=1,dive"`
	Systems  []System              `yaml:"systems" json:"systems" validate:"required,min=1,dive"`
	Services map[string]ServiceDef `yaml:"services" json:"services" validate:"required,min=1"`
	Grading  Grading               `yaml:"grading" json:"grading"`
	Network  Network               `yaml:"network" json:"network"`
}

const (
	defaultIntervalSeconds = 40
	defaultMaxConcurrent   = 32
	defaultTimeoutSeconds  = 20
	defaultPoints          = 10
	defaultNetworkPrefix   = "10.0"
)

var validate = validator.New()

// Validate checks the structural invariants the catalog relies on.
// A config that fails validation must not be graded against; callers
// fall back to Default() so grading never halts entirely.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid master config: %w", err)
	}
	for _, sys := range c.Systems {
		for _, kind := range sys.Services {
			if _, ok := c.Services[kind]; !ok {
				return fmt.Errorf("invalid master config: system %q references undefined service %q", sys.Name, kind)
			}
		}
	}
	return nil
}

// TeamByID returns the team with the given id, if present.
func (c Config) TeamByID(id string) (Team, bool) {
	for _, t := range c.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Service returns the definition for a service kind, if present.
func (c Config) Service(kind string) (ServiceDef, bool) {
	def, ok := c.Services[kind]
	return def, ok
}

// Interval returns the grading interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Grading.IntervalSeconds) * time.Second
}

// TeamAddress derives the instance address for a team/system pair.
func (c Config) TeamAddress(team Team, sys System) string {
	prefix := c.Network.Prefix
	if prefix == "" {
		prefix = defaultNetworkPrefix
	}
	return fmt.Sprintf("%s.%d.%d", prefix, team.Index, sys.IPOffset)
}

// CredentialMap projects team display names to their secrets for the
// external login layer. The grading engine itself never reads this.
func (c Config) CredentialMap() map[string]string {
	creds := make(map[string]string, len(c.Teams))
	for _, t := range c.Teams {
		creds[t.DisplayName] = t.Secret
	}
	return creds
}

// applyDefaults fills zero-valued tunables after unmarshal.
func (c *Config) applyDefaults() {
	if c.Grading.IntervalSeconds <= 0 {
		c.Grading.IntervalSeconds = defaultIntervalSeconds
	}
	if c.Grading.MaxConcurrentProbes <= 0 {
		c.Grading.MaxConcurrentProbes = defaultMaxConcurrent
	}
	if c.Network.Prefix == "" {
		c.Network.Prefix = defaultNetworkPrefix
	}
	for kind, def := range c.Services {
		if def.TimeoutSeconds <= 0 {
			def.TimeoutSeconds = defaultTimeoutSeconds
		}
		if def.Points <= 0 {
			def.Points = defaultPoints
		}
		c.Services[kind] = def
	}
}

// Default returns the built-in minimal exercise: two teams, two ubuntu
// hosts, ping/ssh/web. It is the fallback whenever the master config is
// missing or structurally invalid, and the structure written on first run.
func Default() Config {
	cfg := Config{
		Teams: []Team{
			{ID: "team1", DisplayName: "Team 1", Secret: "changeme1", Index: 1},
			{ID: "team2", DisplayName: "Team 2", Secret: "changeme2", Index: 2},
		},
		Systems: []System{
			{Name: "ubuntu1", DisplayName: "Ubuntu Server 1", IPOffset: 20, Services: []string{"ping", "ssh", "web"}},
			{Name: "ubuntu2", DisplayName: "Ubuntu Server 2", IPOffset: 30, Services: []string{"ping", "ssh", "web"}},
		},
		Services: map[string]ServiceDef{
			"ping": {DisplayName: "ICMP"},
			"ssh": {
				DisplayName:     "SSH",
				DefaultUsername: "sysadmin",
				DefaultPassword: "changeme",
				DefaultPort:     22,
			},
			"web": {DisplayName: "HTTP", DefaultPort: 80},
		},
	}
	cfg.applyDefaults()
	return cfg
}
