// Package deviceconfig loads a device's oatmeal identity and port
// settings from a TOML file, the way the teacher pack's edgectl loads
// its ghost/seed configs.
package deviceconfig

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile is every knob option.WithProfile consumes, sourced from one
// parsed TOML file instead of a chain of With* calls.
type Profile struct {
	RoleName       string `toml:"role"`
	HardwareIDStr  string `toml:"hardware_id"`
	VersionStr     string `toml:"version"`
	InstanceIdxInt int    `toml:"instance_index"`
	BaudInt        int    `toml:"baud"`
	MaxMsgLenInt   int    `toml:"max_msg_len"`
	SigFigsInt     int    `toml:"default_sig_figs"`
}

// Role satisfies option.go's WithProfile structural interface.
func (p Profile) Role() string { return p.RoleName }

// HardwareID satisfies option.go's WithProfile structural interface.
func (p Profile) HardwareID() string { return p.HardwareIDStr }

// Version satisfies option.go's WithProfile structural interface.
func (p Profile) Version() string { return p.VersionStr }

// InstanceIndex satisfies option.go's WithProfile structural interface.
func (p Profile) InstanceIndex() int { return p.InstanceIdxInt }

// Baud satisfies option.go's WithProfile structural interface.
func (p Profile) Baud() int { return p.BaudInt }

// MaxMsgLen satisfies option.go's WithProfile structural interface.
func (p Profile) MaxMsgLen() int { return p.MaxMsgLenInt }

// DefaultSigFigs satisfies option.go's WithProfile structural interface.
func (p Profile) DefaultSigFigs() int { return p.SigFigsInt }

// defaults mirror option.go's defaultOptions exactly, so a TOML file
// need only override the knobs it cares about.
func defaults() Profile {
	return Profile{
		RoleName:      "generic",
		HardwareIDStr: "unknown",
		VersionStr:    "1.0",
		BaudInt:       115200,
		MaxMsgLenInt:  127,
		SigFigsInt:    6,
	}
}

// Load reads and parses the TOML file at path into a Profile. Any field
// the file omits (or sets to an empty/zero value) falls back to the
// same default defaultOptions() in option.go uses, the way
// LoadGhostConfig falls back to "edge-ctl" when a ghost config omits a
// name.
func Load(path string) (Profile, error) {
	var raw Profile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Profile{}, fmt.Errorf("deviceconfig: load %s: %w", path, err)
	}

	p := defaults()
	if role := strings.TrimSpace(raw.RoleName); role != "" {
		p.RoleName = role
	}
	if id := strings.TrimSpace(raw.HardwareIDStr); id != "" {
		p.HardwareIDStr = id
	}
	if v := strings.TrimSpace(raw.VersionStr); v != "" {
		p.VersionStr = v
	}
	if raw.InstanceIdxInt != 0 {
		p.InstanceIdxInt = raw.InstanceIdxInt
	}
	if raw.BaudInt != 0 {
		p.BaudInt = raw.BaudInt
	}
	if raw.MaxMsgLenInt != 0 {
		p.MaxMsgLenInt = raw.MaxMsgLenInt
	}
	if raw.SigFigsInt != 0 {
		p.SigFigsInt = raw.SigFigsInt
	}

	if err := Validate(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate rejects a Profile whose numeric knobs fall outside sane
// bounds — the same constraints option.go's With* constructors leave
// to the caller to uphold, enforced here once at load time since a
// malformed TOML file is a configuration error, not a runtime one.
func Validate(p Profile) error {
	if p.BaudInt <= 0 {
		return fmt.Errorf("deviceconfig: baud must be positive")
	}
	if p.MaxMsgLenInt <= 0 {
		return fmt.Errorf("deviceconfig: max_msg_len must be positive")
	}
	if p.InstanceIdxInt < 0 {
		return fmt.Errorf("deviceconfig: instance_index must not be negative")
	}
	if p.SigFigsInt <= 0 {
		return fmt.Errorf("deviceconfig: default_sig_figs must be positive")
	}
	return nil
}
