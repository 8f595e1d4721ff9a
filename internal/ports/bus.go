package ports

import (
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// MotorsBus is the operation surface of a private Feetech bus. The real
// handle (internal/feetech) and the shared-bus view (internal/core)
// both implement it, so sub-device code never learns whether its bus is
// private or a slice of a shared one.
//
// Motor arguments are local motor names; a nil slice means every motor
// the bus knows about. Register reads and writes return values keyed by
// the same local names. numRetry is forwarded to the transport verbatim;
// no layer above the handle retries on its own.
type MotorsBus interface {
	Motors() map[string]types.Motor
	Calibration() map[string]types.MotorCalibration
	Port() string
	IsConnected() bool
	IsCalibrated() bool

	Connect(handshake bool) error
	Disconnect(disableTorque bool) error

	EnableTorque(motors []string, numRetry int) error
	DisableTorque(motors []string, numRetry int) error
	// TorqueDisabled disables torque on the given motors, runs fn, and
	// re-enables torque afterwards even when fn fails.
	TorqueDisabled(motors []string, fn func() error) error

	ConfigureMotors(motors []string) error
	Write(register string, motor string, value float64, normalize bool, numRetry int) error
	SyncWrite(register string, values map[string]float64, normalize bool, numRetry int) error
	SyncRead(register string, motors []string, normalize bool, numRetry int) (map[string]float64, error)

	SetHalfTurnHomings(motors []string) (map[string]int, error)
	RecordRangesOfMotion(motors []string) (map[string]int, map[string]int, error)
	WriteCalibration(calibration map[string]types.MotorCalibration) error
	SetupMotor(motor string, initialBaudrate int, initialID int) error
}

// BusFactoryConfig carries everything needed to build a physical bus
// handle: the accumulated motor namespace and calibration at the moment
// of first connection.
type BusFactoryConfig struct {
	Port            string
	ProtocolVersion int
	Motors          map[string]types.Motor
	Calibration     map[string]types.MotorCalibration
}

// BusFactory builds a physical bus handle. The shared-bus manager calls
// it at most once per connection generation; tests substitute doubles.
type BusFactory func(cfg BusFactoryConfig) (MotorsBus, error)
