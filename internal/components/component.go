// Package components holds the concrete sub-devices an assembly can be
// built from and the fixed registry resolving component types to their
// builders. Each sub-device starts life with a private Feetech bus on
// its configured port; the assembly builder swaps a shared-bus view in
// when the device shares a bus with others.
package components

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/Vector-Wangel/lerobot/internal/feetech"
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/shared"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

type device struct {
	name        string
	bus         ports.MotorsBus
	calibration map[string]types.MotorCalibration
}

var _ ports.Component = (*device)(nil)

func (d *device) Name() string { return d.name }

func (d *device) Bus() ports.MotorsBus { return d.bus }

func (d *device) SetBus(bus ports.MotorsBus) { d.bus = bus }

func (d *device) Calibration() map[string]types.MotorCalibration {
	return shared.CloneMap(d.calibration)
}

// newDevice builds a sub-device with a private Feetech bus from the
// merged raw configuration. Recognized keys: id (instance name), port
// (serial device path, required), protocol_version, calibration.
func newDevice(defaultName string, cfg map[string]any, motors map[string]types.Motor) (*device, error) {
	name := stringOption(cfg, "id", defaultName)
	port := stringOption(cfg, "port", "")
	if port == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("component %s: no serial port configured", name))
	}
	calibration, err := calibrationOption(cfg)
	if err != nil {
		return nil, err
	}
	bus := feetech.New(feetech.Config{
		Port:            port,
		ProtocolVersion: intOption(cfg, "protocol_version", 0),
		Motors:          motors,
		Calibration:     calibration,
	})
	return &device{
		name:        name,
		bus:         bus,
		calibration: calibration,
	}, nil
}

func stringOption(cfg map[string]any, key string, fallback string) string {
	if value, ok := cfg[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func intOption(cfg map[string]any, key string, fallback int) int {
	switch value := cfg[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return fallback
	}
}

// calibrationOption accepts a pre-typed calibration table, as handed
// over by calibration file loaders.
func calibrationOption(cfg map[string]any) (map[string]types.MotorCalibration, error) {
	raw, ok := cfg["calibration"]
	if !ok {
		return map[string]types.MotorCalibration{}, nil
	}
	calibration, ok := raw.(map[string]types.MotorCalibration)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("calibration option has unsupported type %T", raw))
	}
	return shared.CloneMap(calibration), nil
}
