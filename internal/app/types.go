package app

import (
	"github.com/Vector-Wangel/lerobot/internal/core"
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// ComponentBinding ties one assembled sub-device to the names the
// dispatch layer addresses it by and, in shared mode, to the manager
// arbitrating its bus.
type ComponentBinding struct {
	Name    string
	Role    string
	Prefix  string
	Aliases []string

	Component ports.Component

	// Manager is nil in separate_buses mode.
	Manager *core.BusManager

	// Handshake controls whether the first physical connect pings and
	// verifies every motor.
	Handshake bool
}

// Assembly is a fully bound robot: every component instantiated, every
// shared bus fronted by a manager, nothing connected yet.
type Assembly struct {
	Mode     types.BusMode
	Managers map[string]*core.BusManager
	Bindings []ComponentBinding
}

// ValidateRequest names an assembly file to validate.
type ValidateRequest struct {
	AssemblyPath string
}

// ValidateResult summarizes a validated assembly file.
type ValidateResult struct {
	Mode       types.BusMode
	Buses      []string
	Components []string
}

// StatusRequest asks for the live state of every motor in an assembly.
type StatusRequest struct {
	AssemblyPath string
}

// ComponentStatus is the observed state of one bound component.
type ComponentStatus struct {
	Name       string
	Bus        string
	Connected  bool
	Calibrated bool
	Positions  map[string]float64
}

// CalibrateRequest runs the calibration flow for one component of an
// assembly.
type CalibrateRequest struct {
	AssemblyPath string
	Component    string
}

// CalibrateResult carries the calibration captured for each motor,
// keyed by the component's local motor names.
type CalibrateResult struct {
	Component   string
	Calibration map[string]types.MotorCalibration
}

// SetupMotorRequest programs a factory-fresh servo to the id a motor
// occupies on its component's bus.
type SetupMotorRequest struct {
	AssemblyPath    string
	Component       string
	Motor           string
	InitialBaudrate int
	InitialID       int
}
