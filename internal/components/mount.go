package components

import (
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// XLerobotMountMotors is the pan/tilt camera mount: two STS3215 servos
// reporting in degrees, centered on the half-turn position.
func XLerobotMountMotors() map[string]types.Motor {
	return map[string]types.Motor{
		"head_pan":  {ID: 1, Model: "sts3215", NormMode: types.NormModeDegrees},
		"head_tilt": {ID: 2, Model: "sts3215", NormMode: types.NormModeDegrees},
	}
}

// NewXLerobotMount builds a pan/tilt camera mount.
func NewXLerobotMount(cfg map[string]any) (ports.Component, error) {
	return newDevice("xlerobot_mount", cfg, XLerobotMountMotors())
}
