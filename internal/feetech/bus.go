// Package feetech drives a chain of Feetech SCS/STS serial servos
// behind the ports.MotorsBus surface. One Bus owns one serial port;
// every operation is a blocking request/response round trip guarded by
// the bus mutex.
package feetech

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/shared"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

const (
	defaultReadTimeout     = 250 * time.Millisecond
	defaultRecordingWindow = 5 * time.Second
	recordingInterval      = 20 * time.Millisecond
)

// Registers whose values go through calibration-based normalization
// when the caller asks for it.
var normalizedRegisters = map[string]struct{}{
	"Goal_Position":      {},
	"Present_Position":   {},
	"Min_Position_Limit": {},
	"Max_Position_Limit": {},
}

type Config struct {
	Port            string
	ProtocolVersion int
	Motors          map[string]types.Motor
	Calibration     map[string]types.MotorCalibration

	// Dial opens the transport; defaults to a real serial port.
	Dial DialFunc

	ReadTimeout time.Duration

	// RecordingWindow bounds RecordRangesOfMotion sampling.
	RecordingWindow time.Duration
}

// Bus is a private Feetech bus handle.
type Bus struct {
	port            string
	protocolVersion int
	motors          map[string]types.Motor
	calibration     map[string]types.MotorCalibration
	dial            DialFunc
	readTimeout     time.Duration
	recordingWindow time.Duration

	mu      sync.Mutex
	conn    Porter
	pending []byte
}

var _ ports.MotorsBus = (*Bus)(nil)

func New(cfg Config) *Bus {
	if cfg.Dial == nil {
		cfg.Dial = dialSerial
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.RecordingWindow == 0 {
		cfg.RecordingWindow = defaultRecordingWindow
	}
	calibration := cfg.Calibration
	if calibration == nil {
		calibration = map[string]types.MotorCalibration{}
	}
	return &Bus{
		port:            cfg.Port,
		protocolVersion: cfg.ProtocolVersion,
		motors:          shared.CloneMap(cfg.Motors),
		calibration:     shared.CloneMap(calibration),
		dial:            cfg.Dial,
		readTimeout:     cfg.ReadTimeout,
		recordingWindow: cfg.RecordingWindow,
	}
}

// Factory adapts New to the ports.BusFactory signature used by the
// shared-bus manager. A nil dial keeps the real serial transport.
func Factory(dial DialFunc) ports.BusFactory {
	return func(cfg ports.BusFactoryConfig) (ports.MotorsBus, error) {
		return New(Config{
			Port:            cfg.Port,
			ProtocolVersion: cfg.ProtocolVersion,
			Motors:          cfg.Motors,
			Calibration:     cfg.Calibration,
			Dial:            dial,
		}), nil
	}
}

func (b *Bus) Motors() map[string]types.Motor {
	return shared.CloneMap(b.motors)
}

func (b *Bus) Calibration() map[string]types.MotorCalibration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return shared.CloneMap(b.calibration)
}

func (b *Bus) Port() string {
	return b.port
}

func (b *Bus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bus) IsCalibrated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return false
	}
	for name := range b.motors {
		if _, ok := b.calibration[name]; !ok {
			return false
		}
	}
	return true
}

// Connect opens the serial port. With handshake enabled every known
// motor is pinged and its model number verified, so a miswired chain
// fails loudly before any motion command.
func (b *Bus) Connect(handshake bool) error {
	b.mu.Lock()
	if b.conn != nil {
		b.mu.Unlock()
		return nil
	}
	conn, err := b.dial(b.port)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if err := conn.SetReadTimeout(b.readTimeout); err != nil {
		conn.Close()
		b.mu.Unlock()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to set read timeout on " + b.port).
			WithCause(err)
	}
	b.conn = conn
	b.pending = nil
	b.mu.Unlock()

	if handshake {
		if err := b.handshake(); err != nil {
			b.Disconnect(false)
			return err
		}
	}
	log.Debug().Str("port", b.port).Int("motors", len(b.motors)).Msg("feetech bus connected")
	return nil
}

func (b *Bus) handshake() error {
	for _, name := range shared.SortedKeys(b.motors) {
		motor := b.motors[name]
		if err := b.ping(motor.ID, 0); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeUnavailable).
				WithMsg(fmt.Sprintf("motor %s (id %d) did not answer ping on %s", name, motor.ID, b.port)).
				WithCause(err)
		}
		want, known := modelNumbers[motor.Model]
		if !known {
			continue
		}
		got, err := b.readRegister(motor.ID, "Model_Number", 0)
		if err != nil {
			return err
		}
		if got != want {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("motor %s reports model %d, expected %d (%s)", name, got, want, motor.Model))
		}
	}
	return nil
}

// Disconnect optionally drops torque on every motor, then closes the
// port. Safe to call when already closed.
func (b *Bus) Disconnect(disableTorque bool) error {
	if disableTorque && b.IsConnected() {
		if err := b.DisableTorque(nil, 0); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	b.pending = nil
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close serial port " + b.port).
			WithCause(err)
	}
	log.Debug().Str("port", b.port).Msg("feetech bus disconnected")
	return nil
}

func (b *Bus) EnableTorque(motors []string, numRetry int) error {
	return b.writeTorque(motors, 1, numRetry)
}

func (b *Bus) DisableTorque(motors []string, numRetry int) error {
	return b.writeTorque(motors, 0, numRetry)
}

func (b *Bus) writeTorque(motors []string, value int, numRetry int) error {
	names, err := b.resolveMotors(motors)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := b.writeRegister(b.motors[name].ID, "Torque_Enable", value, numRetry); err != nil {
			return err
		}
	}
	return nil
}

// TorqueDisabled drops torque on the selection, runs fn, and restores
// torque afterwards regardless of fn's outcome. The bus mutex is not
// held across fn, so the body may keep talking to the bus.
func (b *Bus) TorqueDisabled(motors []string, fn func() error) error {
	if err := b.DisableTorque(motors, 0); err != nil {
		return err
	}
	runErr := fn()
	if err := b.EnableTorque(motors, 0); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// ConfigureMotors applies the standard runtime configuration: answer
// immediately, position mode, smooth acceleration.
func (b *Bus) ConfigureMotors(motors []string) error {
	names, err := b.resolveMotors(motors)
	if err != nil {
		return err
	}
	for _, name := range names {
		id := b.motors[name].ID
		if err := b.writeRegister(id, "Return_Delay_Time", 0, 0); err != nil {
			return err
		}
		if err := b.writeRegister(id, "Operating_Mode", 0, 0); err != nil {
			return err
		}
		if err := b.writeRegister(id, "Acceleration", 254, 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Write(registerName string, motor string, value float64, normalize bool, numRetry int) error {
	m, err := b.lookupMotor(motor)
	if err != nil {
		return err
	}
	raw := int(math.Round(value))
	if normalize && b.isNormalized(registerName, motor) {
		raw = b.denormalize(motor, value)
	}
	return b.writeRegister(m.ID, registerName, raw, numRetry)
}

func (b *Bus) SyncWrite(registerName string, values map[string]float64, normalize bool, numRetry int) error {
	reg, err := lookupRegister(registerName)
	if err != nil {
		return err
	}
	params := []byte{reg.Addr, byte(reg.Size)}
	for _, motor := range shared.SortedKeys(values) {
		m, err := b.lookupMotor(motor)
		if err != nil {
			return err
		}
		raw := int(math.Round(values[motor]))
		if normalize && b.isNormalized(registerName, motor) {
			raw = b.denormalize(motor, values[motor])
		}
		params = append(params, byte(m.ID))
		params = append(params, encodeValue(raw, reg.Size, b.protocolVersion)...)
	}
	return b.withRetry(numRetry, func() error {
		// Sync write is broadcast; servos send no status packet.
		return b.send(frame{ID: broadcastID, Instruction: instrSyncWrite, Params: params})
	})
}

func (b *Bus) SyncRead(registerName string, motors []string, normalize bool, numRetry int) (map[string]float64, error) {
	names, err := b.resolveMotors(motors)
	if err != nil {
		return nil, err
	}
	raws := map[string]int{}
	if b.protocolVersion == protocolSCS {
		// SCS servos do not implement sync read; fall back to
		// sequential register reads.
		for _, name := range names {
			raw, err := b.readRegister(b.motors[name].ID, registerName, numRetry)
			if err != nil {
				return nil, err
			}
			raws[name] = raw
		}
	} else {
		if err := b.syncReadRaw(registerName, names, raws, numRetry); err != nil {
			return nil, err
		}
	}
	out := make(map[string]float64, len(raws))
	for name, raw := range raws {
		if normalize && b.isNormalized(registerName, name) {
			out[name] = b.normalize(name, raw)
		} else {
			out[name] = float64(raw)
		}
	}
	return out, nil
}

func (b *Bus) syncReadRaw(registerName string, names []string, raws map[string]int, numRetry int) error {
	reg, err := lookupRegister(registerName)
	if err != nil {
		return err
	}
	byID := map[byte]string{}
	params := []byte{reg.Addr, byte(reg.Size)}
	for _, name := range names {
		id := byte(b.motors[name].ID)
		byID[id] = name
		params = append(params, id)
	}
	return b.withRetry(numRetry, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := b.sendLocked(frame{ID: broadcastID, Instruction: instrSyncRead, Params: params}); err != nil {
			return err
		}
		for range names {
			status, err := b.readStatusLocked()
			if err != nil {
				return err
			}
			name, ok := byID[status.ID]
			if !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg(fmt.Sprintf("sync read answer from unexpected id %d", status.ID))
			}
			raws[name] = decodeValue(status.Params, b.protocolVersion)
		}
		return nil
	})
}

// SetHalfTurnHomings captures a homing offset placing each motor's
// current position at the center of its turn, writes it to the servo,
// and returns the offsets keyed by motor name.
func (b *Bus) SetHalfTurnHomings(motors []string) (map[string]int, error) {
	names, err := b.resolveMotors(motors)
	if err != nil {
		return nil, err
	}
	homings := map[string]int{}
	for _, name := range names {
		id := b.motors[name].ID
		position, err := b.readRegister(id, "Present_Position", 0)
		if err != nil {
			return nil, err
		}
		offset := position - halfTurn
		if err := b.writeRegister(id, "Homing_Offset", encodeSignMagnitude(offset), 0); err != nil {
			return nil, err
		}
		b.mu.Lock()
		cal := b.calibration[name]
		cal.ID = id
		cal.HomingOffset = offset
		b.calibration[name] = cal
		b.mu.Unlock()
		homings[name] = offset
	}
	return homings, nil
}

// RecordRangesOfMotion samples present positions for the recording
// window while the operator moves each joint across its span, and
// returns the observed minima and maxima.
func (b *Bus) RecordRangesOfMotion(motors []string) (map[string]int, map[string]int, error) {
	names, err := b.resolveMotors(motors)
	if err != nil {
		return nil, nil, err
	}
	mins := map[string]int{}
	maxes := map[string]int{}
	deadline := time.Now().Add(b.recordingWindow)
	for {
		for _, name := range names {
			position, err := b.readRegister(b.motors[name].ID, "Present_Position", 0)
			if err != nil {
				return nil, nil, err
			}
			if current, ok := mins[name]; !ok || position < current {
				mins[name] = position
			}
			if current, ok := maxes[name]; !ok || position > current {
				maxes[name] = position
			}
		}
		if !time.Now().Before(deadline) {
			return mins, maxes, nil
		}
		time.Sleep(recordingInterval)
	}
}

// WriteCalibration pushes homing offsets and position limits to the
// servos and replaces the handle's calibration entries.
func (b *Bus) WriteCalibration(calibration map[string]types.MotorCalibration) error {
	for _, name := range shared.SortedKeys(calibration) {
		m, err := b.lookupMotor(name)
		if err != nil {
			return err
		}
		cal := calibration[name]
		if err := b.writeRegister(m.ID, "Homing_Offset", encodeSignMagnitude(cal.HomingOffset), 0); err != nil {
			return err
		}
		if err := b.writeRegister(m.ID, "Min_Position_Limit", cal.RangeMin, 0); err != nil {
			return err
		}
		if err := b.writeRegister(m.ID, "Max_Position_Limit", cal.RangeMax, 0); err != nil {
			return err
		}
		cal.ID = m.ID
		b.mu.Lock()
		b.calibration[name] = cal
		b.mu.Unlock()
	}
	return nil
}

// SetupMotor programs a factory-fresh servo (default id, default baud)
// to the id the motor occupies on this bus. The EEPROM is unlocked for
// the rewrite and locked again afterwards.
func (b *Bus) SetupMotor(motor string, initialBaudrate int, initialID int) error {
	m, err := b.lookupMotor(motor)
	if err != nil {
		return err
	}
	if initialID <= 0 {
		initialID = 1
	}
	if err := b.ping(initialID, 0); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("no servo answering at id %d on %s", initialID, b.port)).
			WithCause(err)
	}
	if err := b.writeRegister(initialID, "Lock", 0, 0); err != nil {
		return err
	}
	if err := b.writeRegister(initialID, "ID", m.ID, 0); err != nil {
		return err
	}
	if index, ok := baudRates[defaultBaudRate]; ok && initialBaudrate != defaultBaudRate {
		if err := b.writeRegister(m.ID, "Baud_Rate", index, 0); err != nil {
			return err
		}
	}
	return b.writeRegister(m.ID, "Lock", 1, 0)
}

// ------------------------------------------------------------------
// Wire helpers

func (b *Bus) lookupMotor(name string) (types.Motor, error) {
	motor, ok := b.motors[name]
	if !ok {
		return types.Motor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown motor on bus %s: %s", b.port, name))
	}
	return motor, nil
}

func (b *Bus) resolveMotors(motors []string) ([]string, error) {
	if motors == nil {
		return shared.SortedKeys(b.motors), nil
	}
	for _, name := range motors {
		if _, err := b.lookupMotor(name); err != nil {
			return nil, err
		}
	}
	return motors, nil
}

func (b *Bus) ping(id int, numRetry int) error {
	return b.withRetry(numRetry, func() error {
		_, err := b.transact(frame{ID: byte(id), Instruction: instrPing})
		return err
	})
}

func (b *Bus) readRegister(id int, registerName string, numRetry int) (int, error) {
	reg, err := lookupRegister(registerName)
	if err != nil {
		return 0, err
	}
	var value int
	err = b.withRetry(numRetry, func() error {
		status, err := b.transact(frame{
			ID:          byte(id),
			Instruction: instrRead,
			Params:      []byte{reg.Addr, byte(reg.Size)},
		})
		if err != nil {
			return err
		}
		if len(status.Params) != reg.Size {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("read %s: expected %d data bytes, got %d", registerName, reg.Size, len(status.Params)))
		}
		value = decodeValue(status.Params, b.protocolVersion)
		return nil
	})
	return value, err
}

func (b *Bus) writeRegister(id int, registerName string, value int, numRetry int) error {
	reg, err := lookupRegister(registerName)
	if err != nil {
		return err
	}
	params := append([]byte{reg.Addr}, encodeValue(value, reg.Size, b.protocolVersion)...)
	return b.withRetry(numRetry, func() error {
		_, err := b.transact(frame{ID: byte(id), Instruction: instrWrite, Params: params})
		return err
	})
}

// withRetry runs fn up to numRetry+1 times. Retries come only from the
// caller-supplied count; this layer adds none of its own.
func (b *Bus) withRetry(numRetry int, fn func() error) error {
	var err error
	for attempt := 0; attempt <= numRetry; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// transact performs one request/response exchange under the bus lock.
func (b *Bus) transact(f frame) (statusPacket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.sendLocked(f); err != nil {
		return statusPacket{}, err
	}
	status, err := b.readStatusLocked()
	if err != nil {
		return statusPacket{}, err
	}
	if status.ID != f.ID {
		return statusPacket{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("answer from id %d, expected %d", status.ID, f.ID))
	}
	if status.Error != 0 {
		return statusPacket{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("servo %d reported hardware error 0x%02x", status.ID, status.Error))
	}
	return status, nil
}

func (b *Bus) send(f frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendLocked(f)
}

func (b *Bus) sendLocked(f frame) error {
	if b.conn == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("bus " + b.port + " is not connected")
	}
	data := f.encode()
	n, err := b.conn.Write(data)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("serial write failed on " + b.port).
			WithCause(err)
	}
	if n != len(data) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("short serial write on %s: %d of %d bytes", b.port, n, len(data)))
	}
	return nil
}

func (b *Bus) readStatusLocked() (statusPacket, error) {
	if b.conn == nil {
		return statusPacket{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("bus " + b.port + " is not connected")
	}
	chunk := make([]byte, 64)
	for {
		if len(b.pending) >= 6 {
			status, consumed, err := decodeStatus(b.pending)
			if consumed > 0 {
				b.pending = b.pending[consumed:]
				if err != nil {
					// Corrupt bytes were skipped; the caller's
					// retry budget decides whether to resend.
					return statusPacket{}, err
				}
				return status, nil
			}
		}
		n, err := b.conn.Read(chunk)
		if n > 0 {
			b.pending = append(b.pending, chunk[:n]...)
			continue
		}
		if err != nil {
			return statusPacket{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("serial read failed on " + b.port).
				WithCause(err)
		}
		// A zero-byte read means the port timed out.
		return statusPacket{}, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("timed out waiting for status packet on " + b.port)
	}
}

// ------------------------------------------------------------------
// Normalization

func (b *Bus) isNormalized(registerName string, motor string) bool {
	if _, ok := normalizedRegisters[registerName]; !ok {
		return false
	}
	m, ok := b.motors[motor]
	if !ok || m.NormMode == types.NormModeNone || m.NormMode == "" {
		return false
	}
	if m.NormMode == types.NormModeDegrees {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cal, ok := b.calibration[motor]
	return ok && cal.RangeMax > cal.RangeMin
}

func (b *Bus) normalize(motor string, raw int) float64 {
	m := b.motors[motor]
	if m.NormMode == types.NormModeDegrees {
		return float64(raw-halfTurn) * 360.0 / float64(positionResolution)
	}
	b.mu.Lock()
	cal := b.calibration[motor]
	b.mu.Unlock()
	span := float64(cal.RangeMax - cal.RangeMin)
	ratio := (float64(raw) - float64(cal.RangeMin)) / span
	if m.NormMode == types.NormModeRangeM100To100 {
		return ratio*200.0 - 100.0
	}
	return ratio * 100.0
}

func (b *Bus) denormalize(motor string, value float64) int {
	m := b.motors[motor]
	if m.NormMode == types.NormModeDegrees {
		return int(math.Round(value*float64(positionResolution)/360.0)) + halfTurn
	}
	b.mu.Lock()
	cal := b.calibration[motor]
	b.mu.Unlock()
	span := float64(cal.RangeMax - cal.RangeMin)
	var ratio float64
	if m.NormMode == types.NormModeRangeM100To100 {
		ratio = (value + 100.0) / 200.0
	} else {
		ratio = value / 100.0
	}
	raw := int(math.Round(float64(cal.RangeMin) + ratio*span))
	if raw < cal.RangeMin {
		raw = cal.RangeMin
	}
	if raw > cal.RangeMax {
		raw = cal.RangeMax
	}
	return raw
}
