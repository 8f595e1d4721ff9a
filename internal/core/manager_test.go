package core

import (
	"sort"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// fakeBus implements ports.MotorsBus as an in-memory echo device. It
// records lifecycle transitions and every motor key it is asked to
// touch, so tests can check that only bus-global names reach the handle.
type fakeBus struct {
	cfg          ports.BusFactoryConfig
	connected    bool
	connects     int
	disconnects  int
	handshakes   []bool
	store        map[string]map[string]float64
	torque       map[string]bool
	observedKeys []string
	broadReads   bool
}

func newFakeBus(cfg ports.BusFactoryConfig) *fakeBus {
	return &fakeBus{
		cfg:    cfg,
		store:  map[string]map[string]float64{},
		torque: map[string]bool{},
	}
}

func (f *fakeBus) factory() ports.BusFactory {
	return func(cfg ports.BusFactoryConfig) (ports.MotorsBus, error) {
		f.cfg = cfg
		if f.store == nil {
			f.store = map[string]map[string]float64{}
		}
		if f.torque == nil {
			f.torque = map[string]bool{}
		}
		return f, nil
	}
}

func (f *fakeBus) observe(motors ...string) {
	f.observedKeys = append(f.observedKeys, motors...)
}

func (f *fakeBus) Motors() map[string]types.Motor { return f.cfg.Motors }

func (f *fakeBus) Calibration() map[string]types.MotorCalibration { return f.cfg.Calibration }

func (f *fakeBus) Port() string { return f.cfg.Port }

func (f *fakeBus) IsConnected() bool { return f.connected }

func (f *fakeBus) IsCalibrated() bool {
	return f.connected && len(f.cfg.Calibration) == len(f.cfg.Motors)
}

func (f *fakeBus) Connect(handshake bool) error {
	f.connected = true
	f.connects++
	f.handshakes = append(f.handshakes, handshake)
	return nil
}

func (f *fakeBus) Disconnect(disableTorque bool) error {
	f.connected = false
	f.disconnects++
	return nil
}

func (f *fakeBus) EnableTorque(motors []string, numRetry int) error {
	f.observe(motors...)
	for _, motor := range motors {
		f.torque[motor] = true
	}
	return nil
}

func (f *fakeBus) DisableTorque(motors []string, numRetry int) error {
	f.observe(motors...)
	for _, motor := range motors {
		f.torque[motor] = false
	}
	return nil
}

func (f *fakeBus) TorqueDisabled(motors []string, fn func() error) error {
	if err := f.DisableTorque(motors, 0); err != nil {
		return err
	}
	defer f.EnableTorque(motors, 0)
	return fn()
}

func (f *fakeBus) ConfigureMotors(motors []string) error {
	f.observe(motors...)
	return nil
}

func (f *fakeBus) Write(register string, motor string, value float64, normalize bool, numRetry int) error {
	f.observe(motor)
	if f.store[register] == nil {
		f.store[register] = map[string]float64{}
	}
	f.store[register][motor] = value
	return nil
}

func (f *fakeBus) SyncWrite(register string, values map[string]float64, normalize bool, numRetry int) error {
	if f.store[register] == nil {
		f.store[register] = map[string]float64{}
	}
	for motor, value := range values {
		f.observe(motor)
		f.store[register][motor] = value
	}
	return nil
}

func (f *fakeBus) SyncRead(register string, motors []string, normalize bool, numRetry int) (map[string]float64, error) {
	f.observe(motors...)
	out := map[string]float64{}
	if f.broadReads {
		// Simulate a handle answering with every motor it knows about.
		for motor, value := range f.store[register] {
			out[motor] = value
		}
		return out, nil
	}
	for _, motor := range motors {
		if value, ok := f.store[register][motor]; ok {
			out[motor] = value
		}
	}
	return out, nil
}

func (f *fakeBus) SetHalfTurnHomings(motors []string) (map[string]int, error) {
	f.observe(motors...)
	out := map[string]int{}
	for _, motor := range motors {
		out[motor] = 2047
	}
	return out, nil
}

func (f *fakeBus) RecordRangesOfMotion(motors []string) (map[string]int, map[string]int, error) {
	f.observe(motors...)
	mins := map[string]int{}
	maxes := map[string]int{}
	for _, motor := range motors {
		mins[motor] = 0
		maxes[motor] = 4095
	}
	return mins, maxes, nil
}

func (f *fakeBus) WriteCalibration(calibration map[string]types.MotorCalibration) error {
	for motor, cal := range calibration {
		f.observe(motor)
		f.cfg.Calibration[motor] = cal
	}
	return nil
}

func (f *fakeBus) SetupMotor(motor string, initialBaudrate int, initialID int) error {
	f.observe(motor)
	return nil
}

func testBusConfig() types.BusConfig {
	return types.BusConfig{
		Type:               types.BusTypeFeetech,
		Port:               "/dev/ttyACM0",
		ProtocolVersion:    0,
		HandshakeOnConnect: true,
	}
}

func armMotors() map[string]types.Motor {
	return map[string]types.Motor{
		"shoulder": {ID: 1, Model: "sts3215", NormMode: types.NormModeRange0To100},
		"elbow":    {ID: 2, Model: "sts3215", NormMode: types.NormModeRange0To100},
	}
}

func TestRegisterComponentAppliesPrefixAndOffset(t *testing.T) {
	manager := NewBusManager("chassis", testBusConfig(), newFakeBus(ports.BusFactoryConfig{}).factory())

	view, err := manager.RegisterComponent("right_arm", armMotors(), "right_", 6, nil)
	require.NoError(t, err)

	global := manager.Motors()
	require.Contains(t, global, "right_shoulder")
	require.Contains(t, global, "right_elbow")
	assert.Equal(t, 7, global["right_shoulder"].ID)
	assert.Equal(t, 8, global["right_elbow"].ID)

	local := view.Motors()
	assert.Equal(t, 7, local["shoulder"].ID)
	assert.Equal(t, "sts3215", local["shoulder"].Model)
}

func TestRegisterComponentNameCollisionIsAtomic(t *testing.T) {
	manager := NewBusManager("chassis", testBusConfig(), newFakeBus(ports.BusFactoryConfig{}).factory())

	_, err := manager.RegisterComponent("left_arm", armMotors(), "left_", 0, nil)
	require.NoError(t, err)
	before := len(manager.Motors())

	colliding := map[string]types.Motor{
		"wrist":    {ID: 20, Model: "sts3215", NormMode: types.NormModeRange0To100},
		"shoulder": {ID: 21, Model: "sts3215", NormMode: types.NormModeRange0To100},
	}
	_, err = manager.RegisterComponent("rogue", colliding, "left_", 0, nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeAlreadyExists, errbuilder.CodeOf(err))

	// Nothing from the failed call may be committed, not even the
	// non-colliding wrist motor.
	if diff := cmp.Diff(before, len(manager.Motors())); diff != "" {
		t.Fatalf("namespace size changed on failed registration (-want +got):\n%s", diff)
	}
	assert.NotContains(t, manager.Motors(), "left_wrist")
}

func TestRegisterComponentIDCollisionRejected(t *testing.T) {
	manager := NewBusManager("chassis", testBusConfig(), newFakeBus(ports.BusFactoryConfig{}).factory())

	_, err := manager.RegisterComponent("left_arm", armMotors(), "left_", 0, nil)
	require.NoError(t, err)

	// Distinct names, but the offset arithmetic lands on id 1 again.
	_, err = manager.RegisterComponent("right_arm", armMotors(), "right_", 0, nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeAlreadyExists, errbuilder.CodeOf(err))
	assert.NotContains(t, manager.Motors(), "right_shoulder")
}

func TestRegisterComponentAfterAcquireRejected(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())

	_, err := manager.RegisterComponent("left_arm", armMotors(), "left_", 0, nil)
	require.NoError(t, err)
	require.NoError(t, manager.Acquire(true))

	_, err = manager.RegisterComponent("late", armMotors(), "late_", 10, nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestRegisterComponentSeedsCalibration(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())

	calibration := map[string]types.MotorCalibration{
		"shoulder": {ID: 1, HomingOffset: 100, RangeMin: 10, RangeMax: 4000},
	}
	_, err := manager.RegisterComponent("right_arm", armMotors(), "right_", 6, calibration)
	require.NoError(t, err)
	require.NoError(t, manager.Acquire(true))

	require.Contains(t, fake.cfg.Calibration, "right_shoulder")
	seeded := fake.cfg.Calibration["right_shoulder"]
	assert.Equal(t, 7, seeded.ID, "calibration id must follow the renumbered motor")
	assert.Equal(t, 100, seeded.HomingOffset)
}

func TestAcquireReleaseRefcount(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())

	_, err := manager.RegisterComponent("left_arm", armMotors(), "left_", 0, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, manager.Acquire(true))
	}
	assert.Equal(t, 1, fake.connects, "only the 0->1 transition may connect")
	assert.Equal(t, []bool{true}, fake.handshakes)
	assert.True(t, manager.IsConnected())

	require.NoError(t, manager.Release(true))
	require.NoError(t, manager.Release(true))
	assert.Equal(t, 0, fake.disconnects, "intermediate releases must not disconnect")
	assert.True(t, manager.IsConnected())

	require.NoError(t, manager.Release(true))
	assert.Equal(t, 1, fake.disconnects)
	assert.False(t, manager.IsConnected())

	// Released past zero: no-op.
	require.NoError(t, manager.Release(true))
	assert.Equal(t, 1, fake.disconnects)
}

func TestSharedShoulderScenario(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())

	shoulder := map[string]types.Motor{
		"shoulder": {ID: 1, Model: "sts3215", NormMode: types.NormModeRange0To100},
	}
	left, err := manager.RegisterComponent("left", shoulder, "left_", 0, nil)
	require.NoError(t, err)
	right, err := manager.RegisterComponent("right", shoulder, "right_", 6, nil)
	require.NoError(t, err)

	global := manager.Motors()
	assert.Equal(t, 1, global["left_shoulder"].ID)
	assert.Equal(t, 7, global["right_shoulder"].ID)

	require.NoError(t, left.Connect(true))
	require.NoError(t, right.Connect(true))
	assert.Equal(t, 1, fake.connects)

	require.NoError(t, left.Disconnect(false))
	assert.Equal(t, 0, fake.disconnects, "bus must stay up while right is attached")
	require.NoError(t, right.Disconnect(false))
	assert.Equal(t, 1, fake.disconnects)
}

func TestAcquireFactoryErrorDoesNotCount(t *testing.T) {
	factory := func(cfg ports.BusFactoryConfig) (ports.MotorsBus, error) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("port unavailable")
	}
	manager := NewBusManager("chassis", testBusConfig(), factory)

	require.Error(t, manager.Acquire(true))
	assert.False(t, manager.IsConnected())
	// A later release must still be a safe no-op.
	require.NoError(t, manager.Release(true))
}

func sortedObserved(fake *fakeBus) []string {
	observed := append([]string(nil), fake.observedKeys...)
	sort.Strings(observed)
	return observed
}
