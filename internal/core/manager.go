// Package core implements the shared-bus virtualization layer: a
// BusManager that owns the single physical bus handle and the bus-global
// motor namespace, and per-component BusViews that translate between a
// sub-device's local motor names and that namespace.
package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/shared"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// BusManager arbitrates one physical Feetech bus shared by several
// sub-devices. It owns the bus-global motor namespace, the global
// calibration table, and the connection reference count; the handle is
// built lazily on first Acquire and torn down when the count returns to
// zero.
//
// Every operation, including IO forwarded from views, holds the
// manager's mutex: the physical bus is a single request/response
// resource and cannot serve two callers at once.
type BusManager struct {
	name    string
	config  types.BusConfig
	factory ports.BusFactory

	mu          sync.Mutex
	motorDefs   map[string]types.Motor
	calibration map[string]types.MotorCalibration
	views       map[string]*BusView
	bus         ports.MotorsBus
	refcount    int
}

func NewBusManager(name string, cfg types.BusConfig, factory ports.BusFactory) *BusManager {
	return &BusManager{
		name:        name,
		config:      cfg,
		factory:     factory,
		motorDefs:   map[string]types.Motor{},
		calibration: map[string]types.MotorCalibration{},
		views:       map[string]*BusView{},
	}
}

func (m *BusManager) Name() string {
	return m.name
}

func (m *BusManager) Config() types.BusConfig {
	return m.config
}

// RegisterComponent merges a sub-device's motor set into the bus-global
// namespace and returns the view the sub-device will use in place of a
// private bus. Global name = prefix + local name, global id = local id
// + idOffset. Registration is atomic: a name or id collision commits
// nothing. Registering after the handle has been built is rejected;
// motors added then would never reach the live handle.
func (m *BusManager) RegisterComponent(
	componentName string,
	localMotors map[string]types.Motor,
	prefix string,
	idOffset int,
	initialCalibration map[string]types.MotorCalibration,
) (*BusView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bus != nil {
		return nil, errLateRegistration(m.name, componentName)
	}

	usedIDs := map[int]string{}
	for busName, motor := range m.motorDefs {
		usedIDs[motor.ID] = busName
	}

	// Validate the whole motor set before committing anything.
	staged := map[string]types.Motor{}
	for _, motorName := range shared.SortedKeys(localMotors) {
		motor := localMotors[motorName]
		busName := prefix + motorName
		if _, exists := m.motorDefs[busName]; exists {
			return nil, errNameCollision(m.name, busName)
		}
		if _, exists := staged[busName]; exists {
			return nil, errNameCollision(m.name, busName)
		}
		busID := motor.ID + idOffset
		if _, exists := usedIDs[busID]; exists {
			return nil, errIDCollision(m.name, busName, busID)
		}
		usedIDs[busID] = busName
		staged[busName] = types.Motor{
			ID:       busID,
			Model:    motor.Model,
			NormMode: motor.NormMode,
		}
	}

	localCopy := map[string]types.Motor{}
	mapping := map[string]string{}
	for motorName := range localMotors {
		busName := prefix + motorName
		renumbered := staged[busName]
		m.motorDefs[busName] = renumbered
		localCopy[motorName] = renumbered
		mapping[motorName] = busName
		if cal, ok := initialCalibration[motorName]; ok {
			cal.ID = renumbered.ID
			m.calibration[busName] = cal
		}
	}

	view := &BusView{
		manager:     m,
		localMotors: localCopy,
		localToBus:  mapping,
	}
	m.views[componentName] = view

	log.Debug().
		Str("bus", m.name).
		Str("component", componentName).
		Int("motors", len(localCopy)).
		Msg("component registered on shared bus")
	return view, nil
}

// View returns the view registered under componentName, if any.
func (m *BusManager) View(componentName string) (*BusView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	view, ok := m.views[componentName]
	return view, ok
}

// Motors returns a snapshot of the bus-global namespace.
func (m *BusManager) Motors() map[string]types.Motor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return shared.CloneMap(m.motorDefs)
}

// Acquire ensures the physical handle exists, bumps the reference
// count, and performs the real connect (with handshake) only on the
// 0 -> 1 transition. A failed connect rolls the count back so a later
// Acquire retries.
func (m *BusManager) Acquire(handshake bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bus == nil {
		bus, err := m.factory(ports.BusFactoryConfig{
			Port:            m.config.Port,
			ProtocolVersion: m.config.ProtocolVersion,
			Motors:          shared.CloneMap(m.motorDefs),
			Calibration:     shared.CloneMap(m.calibration),
		})
		if err != nil {
			return err
		}
		m.bus = bus
	}

	m.refcount++
	if m.refcount == 1 && !m.bus.IsConnected() {
		if err := m.bus.Connect(handshake); err != nil {
			m.refcount--
			return err
		}
		log.Debug().Str("bus", m.name).Msg("shared bus connected")
	}
	return nil
}

// Release drops one reference. It is a no-op when the count is already
// zero; the real disconnect happens only on the 1 -> 0 transition,
// optionally disabling torque on all motors first.
func (m *BusManager) Release(disableTorque bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refcount == 0 {
		return nil
	}
	m.refcount--
	if m.refcount == 0 && m.bus != nil && m.bus.IsConnected() {
		if err := m.bus.Disconnect(disableTorque); err != nil {
			return err
		}
		log.Debug().Str("bus", m.name).Msg("shared bus disconnected")
	}
	return nil
}

func (m *BusManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bus != nil && m.bus.IsConnected()
}

// withBus runs fn against the physical handle while holding the
// manager's lock. It fails when the handle has never been built.
func (m *BusManager) withBus(fn func(bus ports.MotorsBus) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bus == nil {
		return errBusUninitialized(m.name)
	}
	return fn(m.bus)
}

// tryBus is the best-effort variant of withBus: absent handle means
// silent no-op. Used for torque safety operations.
func (m *BusManager) tryBus(fn func(bus ports.MotorsBus) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bus == nil {
		return nil
	}
	return fn(m.bus)
}

// busCalibration snapshots the handle's calibration table, reporting
// whether a handle exists at all.
func (m *BusManager) busCalibration() (map[string]types.MotorCalibration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bus == nil {
		return nil, false
	}
	return m.bus.Calibration(), true
}
