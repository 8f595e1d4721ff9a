package components

import (
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// SO101FollowerMotors is the canonical motor layout of an SO-101
// follower arm: six STS3215 servos, ids 1 through 6 from the shoulder
// out. The gripper normalizes to 0..100, everything else to -100..100.
func SO101FollowerMotors() map[string]types.Motor {
	return map[string]types.Motor{
		"shoulder_pan":  {ID: 1, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"shoulder_lift": {ID: 2, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"elbow_flex":    {ID: 3, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"wrist_flex":    {ID: 4, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"wrist_roll":    {ID: 5, Model: "sts3215", NormMode: types.NormModeRangeM100To100},
		"gripper":       {ID: 6, Model: "sts3215", NormMode: types.NormModeRange0To100},
	}
}

// NewSO101Follower builds an SO-101 follower arm.
func NewSO101Follower(cfg map[string]any) (ports.Component, error) {
	return newDevice("so101_follower", cfg, SO101FollowerMotors())
}
