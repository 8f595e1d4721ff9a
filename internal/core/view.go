package core

import (
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/shared"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// BusView exposes a motor subset of a shared bus behind the full
// private-bus surface. Inputs keyed by local motor names are rewritten
// to bus-global names before forwarding; outputs keyed by global names
// are rewritten back, and global keys outside this view's subset are
// dropped so one sub-device never observes another's motors.
//
// Views are constructed only by BusManager.RegisterComponent and never
// touch the handle's connection lifecycle directly.
type BusView struct {
	manager     *BusManager
	localMotors map[string]types.Motor
	localToBus  map[string]string
	connected   bool
}

var _ ports.MotorsBus = (*BusView)(nil)

func (v *BusView) translateMotor(motor string) (string, error) {
	busName, ok := v.localToBus[motor]
	if !ok {
		return "", errUnknownMotor(motor)
	}
	return busName, nil
}

// translateMotors maps local names to bus-global names; a nil slice
// selects every motor this view owns, in deterministic order.
func (v *BusView) translateMotors(motors []string) ([]string, error) {
	if motors == nil {
		motors = shared.SortedKeys(v.localMotors)
	}
	subset := make([]string, 0, len(motors))
	for _, motor := range motors {
		busName, err := v.translateMotor(motor)
		if err != nil {
			return nil, err
		}
		subset = append(subset, busName)
	}
	return subset, nil
}

func translateKeys[V any](v *BusView, values map[string]V) (map[string]V, error) {
	out := make(map[string]V, len(values))
	for motor, value := range values {
		busName, err := v.translateMotor(motor)
		if err != nil {
			return nil, err
		}
		out[busName] = value
	}
	return out, nil
}

func mapToLocal[V any](v *BusView, values map[string]V) map[string]V {
	reverse := make(map[string]string, len(v.localToBus))
	for local, busName := range v.localToBus {
		reverse[busName] = local
	}
	out := make(map[string]V, len(values))
	for busName, value := range values {
		local, ok := reverse[busName]
		if !ok {
			continue
		}
		out[local] = value
	}
	return out
}

// Motors returns the view's local motor definitions with the ids they
// occupy on the shared bus.
func (v *BusView) Motors() map[string]types.Motor {
	return shared.CloneMap(v.localMotors)
}

// Calibration returns the subset of the bus-global calibration table
// covering this view's motors, keyed by local names. It is empty until
// the handle exists.
func (v *BusView) Calibration() map[string]types.MotorCalibration {
	calibration, ok := v.manager.busCalibration()
	if !ok {
		return map[string]types.MotorCalibration{}
	}
	return mapToLocal(v, calibration)
}

func (v *BusView) Port() string {
	return v.manager.config.Port
}

func (v *BusView) IsConnected() bool {
	return v.manager.IsConnected()
}

// IsCalibrated reports whether the bus is connected and every motor of
// this view has an entry in the global calibration table.
func (v *BusView) IsCalibrated() bool {
	if !v.manager.IsConnected() {
		return false
	}
	calibration, ok := v.manager.busCalibration()
	if !ok {
		return false
	}
	for _, busName := range v.localToBus {
		if _, present := calibration[busName]; !present {
			return false
		}
	}
	return true
}

// Connect attaches the view to the shared bus, triggering the real
// connect only if this is the first attached view.
func (v *BusView) Connect(handshake bool) error {
	if err := v.manager.Acquire(handshake); err != nil {
		return err
	}
	v.connected = true
	return nil
}

// Disconnect detaches the view. It is idempotent; the real disconnect
// happens only once the last attached view has released.
func (v *BusView) Disconnect(disableTorque bool) error {
	if !v.connected {
		return nil
	}
	if disableTorque && v.IsConnected() {
		if err := v.DisableTorque(nil, 0); err != nil {
			return err
		}
	}
	if err := v.manager.Release(disableTorque); err != nil {
		return err
	}
	v.connected = false
	return nil
}

// EnableTorque is best-effort: absent handle means silent no-op rather
// than an error, since torque toggles are safety conveniences.
func (v *BusView) EnableTorque(motors []string, numRetry int) error {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return err
	}
	if len(subset) == 0 {
		return nil
	}
	return v.manager.tryBus(func(bus ports.MotorsBus) error {
		return bus.EnableTorque(subset, numRetry)
	})
}

// DisableTorque is best-effort, see EnableTorque.
func (v *BusView) DisableTorque(motors []string, numRetry int) error {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return err
	}
	if len(subset) == 0 {
		return nil
	}
	return v.manager.tryBus(func(bus ports.MotorsBus) error {
		return bus.DisableTorque(subset, numRetry)
	})
}

// TorqueDisabled disables torque on the subset, runs fn, and re-enables
// torque afterwards. fn always runs, even when there is no handle yet
// or nothing to translate. The manager lock is not held across fn so
// the scope body may issue bus operations through this view.
func (v *BusView) TorqueDisabled(motors []string, fn func() error) error {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return err
	}
	disabled := false
	if len(subset) > 0 {
		err = v.manager.tryBus(func(bus ports.MotorsBus) error {
			disabled = true
			return bus.DisableTorque(subset, 0)
		})
		if err != nil {
			return err
		}
	}
	runErr := fn()
	if disabled {
		err = v.manager.tryBus(func(bus ports.MotorsBus) error {
			return bus.EnableTorque(subset, 0)
		})
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// ConfigureMotors applies the standard register configuration to the
// subset. Like the torque toggles it no-ops without a handle.
func (v *BusView) ConfigureMotors(motors []string) error {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return err
	}
	if len(subset) == 0 {
		return nil
	}
	return v.manager.tryBus(func(bus ports.MotorsBus) error {
		return bus.ConfigureMotors(subset)
	})
}

func (v *BusView) Write(register string, motor string, value float64, normalize bool, numRetry int) error {
	busName, err := v.translateMotor(motor)
	if err != nil {
		return err
	}
	return v.manager.withBus(func(bus ports.MotorsBus) error {
		return bus.Write(register, busName, value, normalize, numRetry)
	})
}

func (v *BusView) SyncWrite(register string, values map[string]float64, normalize bool, numRetry int) error {
	payload, err := translateKeys(v, values)
	if err != nil {
		return err
	}
	return v.manager.withBus(func(bus ports.MotorsBus) error {
		return bus.SyncWrite(register, payload, normalize, numRetry)
	})
}

func (v *BusView) SyncRead(register string, motors []string, normalize bool, numRetry int) (map[string]float64, error) {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return nil, err
	}
	var result map[string]float64
	err = v.manager.withBus(func(bus ports.MotorsBus) error {
		var busErr error
		result, busErr = bus.SyncRead(register, subset, normalize, numRetry)
		return busErr
	})
	if err != nil {
		return nil, err
	}
	return mapToLocal(v, result), nil
}

func (v *BusView) SetHalfTurnHomings(motors []string) (map[string]int, error) {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return nil, err
	}
	var result map[string]int
	err = v.manager.withBus(func(bus ports.MotorsBus) error {
		var busErr error
		result, busErr = bus.SetHalfTurnHomings(subset)
		return busErr
	})
	if err != nil {
		return nil, err
	}
	return mapToLocal(v, result), nil
}

func (v *BusView) RecordRangesOfMotion(motors []string) (map[string]int, map[string]int, error) {
	subset, err := v.translateMotors(motors)
	if err != nil {
		return nil, nil, err
	}
	var mins, maxes map[string]int
	err = v.manager.withBus(func(bus ports.MotorsBus) error {
		var busErr error
		mins, maxes, busErr = bus.RecordRangesOfMotion(subset)
		return busErr
	})
	if err != nil {
		return nil, nil, err
	}
	return mapToLocal(v, mins), mapToLocal(v, maxes), nil
}

// WriteCalibration forwards a locally keyed calibration table, rewriting
// keys and ids into the bus-global namespace.
func (v *BusView) WriteCalibration(calibration map[string]types.MotorCalibration) error {
	translated := make(map[string]types.MotorCalibration, len(calibration))
	for motor, cal := range calibration {
		busName, err := v.translateMotor(motor)
		if err != nil {
			return err
		}
		cal.ID = v.localMotors[motor].ID
		translated[busName] = cal
	}
	return v.manager.withBus(func(bus ports.MotorsBus) error {
		return bus.WriteCalibration(translated)
	})
}

func (v *BusView) SetupMotor(motor string, initialBaudrate int, initialID int) error {
	busName, err := v.translateMotor(motor)
	if err != nil {
		return err
	}
	return v.manager.withBus(func(bus ports.MotorsBus) error {
		return bus.SetupMotor(busName, initialBaudrate, initialID)
	})
}
