package components

import (
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// LekiwiBaseMotors is the wheel layout of a LeKiwi holonomic base:
// three STS3215 servos in velocity mode, ids 7 through 9 so the base
// can share a chain with a six-motor arm without renumbering.
func LekiwiBaseMotors() map[string]types.Motor {
	return map[string]types.Motor{
		"left_wheel":  {ID: 7, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"back_wheel":  {ID: 8, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"right_wheel": {ID: 9, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
	}
}

// NewLekiwiBase builds a LeKiwi mobile base.
func NewLekiwiBase(cfg map[string]any) (ports.Component, error) {
	return newDevice("lekiwi_base", cfg, LekiwiBaseMotors())
}
