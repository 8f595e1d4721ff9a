package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Vector-Wangel/lerobot/internal/types"
)

// Calibrate runs the full calibration flow for one component: torque
// off, capture half-turn homing offsets, record ranges of motion while
// the operator moves each joint, then write the result to the servos.
func (s Service) Calibrate(ctx context.Context, req CalibrateRequest) (CalibrateResult, error) {
	assembly, err := s.load(ctx, req.AssemblyPath)
	if err != nil {
		return CalibrateResult{}, err
	}
	binding, err := assembly.Binding(req.Component)
	if err != nil {
		return CalibrateResult{}, err
	}

	bus := binding.Component.Bus()
	if err := bus.Connect(binding.Handshake); err != nil {
		return CalibrateResult{}, err
	}
	defer func() {
		if err := bus.Disconnect(true); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("bus disconnect failed after calibration")
		}
	}()

	calibration := map[string]types.MotorCalibration{}
	err = bus.TorqueDisabled(nil, func() error {
		homings, err := bus.SetHalfTurnHomings(nil)
		if err != nil {
			return err
		}
		log.Ctx(ctx).Info().
			Str("component", binding.Name).
			Msg("homing offsets captured, move every joint through its full range")
		mins, maxes, err := bus.RecordRangesOfMotion(nil)
		if err != nil {
			return err
		}
		motors := bus.Motors()
		for name, motor := range motors {
			calibration[name] = types.MotorCalibration{
				ID:           motor.ID,
				HomingOffset: homings[name],
				RangeMin:     mins[name],
				RangeMax:     maxes[name],
			}
		}
		return bus.WriteCalibration(calibration)
	})
	if err != nil {
		return CalibrateResult{}, err
	}
	return CalibrateResult{Component: binding.Name, Calibration: calibration}, nil
}
