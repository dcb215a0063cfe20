// Package stack contains the pure domain model for the unified compose
// deployment: the profile/environment selectors, the argv builders for every
// external command the bootstrapper issues, and the static container name
// lists used during conflict cleanup. This is part of the Functional Core -
// all functions are pure with no I/O.
package stack

import (
	"errors"
	"fmt"
)

// =============================================================================
// Selectors
// =============================================================================

// Profile selects which optional service group of the AI stack is activated.
// ProfileNone activates no optional group and adds no --profile flag.
type Profile string

const (
	ProfileCPU       Profile = "cpu"
	ProfileGPUNvidia Profile = "gpu-nvidia"
	ProfileGPUAMD    Profile = "gpu-amd"
	ProfileNone      Profile = "none"
)

// DefaultProfile is used when no profile is given on the command line.
const DefaultProfile = ProfileCPU

// ErrUnknownProfile is returned when a profile string is not one of the
// supported values.
var ErrUnknownProfile = errors.New("unknown profile")

// ParseProfile validates a profile string from the command line.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileCPU, ProfileGPUNvidia, ProfileGPUAMD, ProfileNone:
		return Profile(s), nil
	}
	return "", fmt.Errorf("%w: %q (want cpu, gpu-nvidia, gpu-amd or none)", ErrUnknownProfile, s)
}

func (p Profile) String() string { return string(p) }

// Flagged reports whether the profile adds a --profile flag to compose
// commands. ProfileNone does not.
func (p Profile) Flagged() bool { return p != ProfileNone && p != "" }

// Environment selects which override file is layered onto each stack's base
// compose file.
type Environment string

const (
	EnvironmentPrivate Environment = "private"
	EnvironmentPublic  Environment = "public"
)

// DefaultEnvironment is used when no environment is given on the command line.
const DefaultEnvironment = EnvironmentPrivate

// ErrUnknownEnvironment is returned when an environment string is not one of
// the supported values.
var ErrUnknownEnvironment = errors.New("unknown environment")

// ParseEnvironment validates an environment string from the command line.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvironmentPrivate, EnvironmentPublic:
		return Environment(s), nil
	}
	return "", fmt.Errorf("%w: %q (want private or public)", ErrUnknownEnvironment, s)
}

func (e Environment) String() string { return string(e) }
