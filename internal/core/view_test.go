package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

func registeredView(t *testing.T, fake *fakeBus) (*BusManager, *BusView) {
	t.Helper()
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())
	view, err := manager.RegisterComponent("right_arm", armMotors(), "right_", 6, nil)
	require.NoError(t, err)
	return manager, view
}

func TestViewRoundTripUsesGlobalKeysOnWire(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)
	require.NoError(t, view.Connect(true))

	values := map[string]float64{"shoulder": 12.5, "elbow": -3}
	require.NoError(t, view.SyncWrite("Goal_Position", values, true, 0))

	got, err := view.SyncRead("Goal_Position", []string{"shoulder", "elbow"}, true, 0)
	require.NoError(t, err)
	if diff := cmp.Diff(values, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// The handle must only ever see bus-global names.
	for _, key := range sortedObserved(fake) {
		assert.Contains(t, []string{"right_shoulder", "right_elbow"}, key)
	}
}

func TestViewDropsForeignMotorsFromResults(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())
	left, err := manager.RegisterComponent("left", map[string]types.Motor{
		"shoulder": {ID: 1, Model: "sts3215", NormMode: types.NormModeRange0To100},
	}, "left_", 0, nil)
	require.NoError(t, err)
	right, err := manager.RegisterComponent("right", map[string]types.Motor{
		"shoulder": {ID: 7, Model: "sts3215", NormMode: types.NormModeRange0To100},
	}, "right_", 0, nil)
	require.NoError(t, err)

	require.NoError(t, left.Connect(true))
	require.NoError(t, left.SyncWrite("Present_Position", map[string]float64{"shoulder": 11}, false, 0))
	require.NoError(t, right.SyncWrite("Present_Position", map[string]float64{"shoulder": 22}, false, 0))

	// Handle answers with every motor it knows about; the view must
	// filter the other component's entry out.
	fake.broadReads = true
	got, err := left.SyncRead("Present_Position", nil, false, 0)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]float64{"shoulder": 11}, got); diff != "" {
		t.Fatalf("foreign motors leaked into view result (-want +got):\n%s", diff)
	}
}

func TestViewWriteBeforeAcquireFails(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)

	err := view.Write("Goal_Position", "shoulder", 1, true, 0)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	_, err = view.SyncRead("Present_Position", nil, true, 0)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	_, err = view.SetHalfTurnHomings(nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	err = view.WriteCalibration(map[string]types.MotorCalibration{"shoulder": {}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	err = view.SetupMotor("shoulder", 1000000, 1)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestViewTorqueOpsAreBestEffortWithoutHandle(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)

	require.NoError(t, view.EnableTorque(nil, 0))
	require.NoError(t, view.DisableTorque([]string{"shoulder"}, 0))
	assert.Empty(t, fake.observedKeys)
}

func TestViewTorqueDisabledAlwaysYields(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)

	// No handle yet: the scope body must still run.
	ran := false
	require.NoError(t, view.TorqueDisabled(nil, func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	require.NoError(t, view.Connect(true))
	require.NoError(t, view.TorqueDisabled(nil, func() error {
		assert.False(t, fake.torque["right_shoulder"])
		assert.False(t, fake.torque["right_elbow"])
		// The body may issue bus traffic through the same view.
		return view.Write("Goal_Position", "shoulder", 5, false, 0)
	}))
	assert.True(t, fake.torque["right_shoulder"], "torque must be re-enabled after the scope")
	assert.True(t, fake.torque["right_elbow"])
}

func TestViewTranslateUnknownMotor(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)
	require.NoError(t, view.Connect(true))

	err := view.Write("Goal_Position", "gripper", 1, true, 0)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestViewCalibrationSubset(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())

	calibration := map[string]types.MotorCalibration{
		"shoulder": {ID: 1, HomingOffset: 42, RangeMin: 0, RangeMax: 4095},
		"elbow":    {ID: 2, HomingOffset: 7, RangeMin: 0, RangeMax: 4095},
	}
	view, err := manager.RegisterComponent("right_arm", armMotors(), "right_", 6, calibration)
	require.NoError(t, err)
	_, err = manager.RegisterComponent("mount", map[string]types.Motor{
		"pan": {ID: 20, Model: "sts3215", NormMode: types.NormModeDegrees},
	}, "mount_", 0, map[string]types.MotorCalibration{"pan": {ID: 20}})
	require.NoError(t, err)

	// No handle yet: empty mapping, not an error.
	assert.Empty(t, view.Calibration())
	assert.False(t, view.IsCalibrated())

	require.NoError(t, view.Connect(true))
	got := view.Calibration()
	require.Len(t, got, 2, "view must see exactly its own calibration entries")
	assert.Equal(t, 42, got["shoulder"].HomingOffset)
	assert.Equal(t, 7, got["elbow"].HomingOffset)
	assert.True(t, view.IsCalibrated())
}

func TestViewIsCalibratedRequiresEveryMotor(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	manager := NewBusManager("chassis", testBusConfig(), fake.factory())

	partial := map[string]types.MotorCalibration{
		"shoulder": {ID: 1},
	}
	view, err := manager.RegisterComponent("right_arm", armMotors(), "right_", 6, partial)
	require.NoError(t, err)
	require.NoError(t, view.Connect(true))

	assert.True(t, view.IsConnected())
	assert.False(t, view.IsCalibrated(), "elbow has no calibration entry")

	require.NoError(t, view.WriteCalibration(map[string]types.MotorCalibration{
		"elbow": {HomingOffset: 3},
	}))
	assert.True(t, view.IsCalibrated())

	require.NoError(t, view.Disconnect(false))
	assert.False(t, view.IsCalibrated(), "never calibrated while disconnected")
}

func TestViewDisconnectIdempotent(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)

	// Detached view: disconnect is a no-op, not an error.
	require.NoError(t, view.Disconnect(true))
	assert.Equal(t, 0, fake.disconnects)

	require.NoError(t, view.Connect(true))
	require.NoError(t, view.Disconnect(true))
	require.NoError(t, view.Disconnect(true))
	assert.Equal(t, 1, fake.disconnects)
}

func TestViewDisconnectDisablesLocalTorqueFirst(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)
	require.NoError(t, view.Connect(true))
	require.NoError(t, view.EnableTorque(nil, 0))

	require.NoError(t, view.Disconnect(true))
	assert.False(t, fake.torque["right_shoulder"])
	assert.False(t, fake.torque["right_elbow"])
}

func TestViewPortAndMotors(t *testing.T) {
	fake := newFakeBus(ports.BusFactoryConfig{})
	_, view := registeredView(t, fake)

	assert.Equal(t, "/dev/ttyACM0", view.Port())
	motors := view.Motors()
	require.Len(t, motors, 2)
	assert.Equal(t, 7, motors["shoulder"].ID)
	assert.Equal(t, 8, motors["elbow"].ID)
}
