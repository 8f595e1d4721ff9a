package ports

import (
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// Component is the boundary the assembly builder needs from a
// sub-device: access to its bus (to read the motor set and to swap a
// shared-bus view in) and its initial calibration.
type Component interface {
	Name() string
	Bus() MotorsBus
	SetBus(bus MotorsBus)
	Calibration() map[string]types.MotorCalibration
}

// ComponentBuilder instantiates a sub-device from its merged raw
// configuration. Registered per component type in internal/components.
type ComponentBuilder func(cfg map[string]any) (Component, error)
