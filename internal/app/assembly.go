// Package app wires assembly descriptors into running hardware: it
// validates configuration, builds one bus manager per shared bus,
// instantiates components through the registry, and swaps shared-bus
// views into the sub-devices.
package app

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/Vector-Wangel/lerobot/internal/components"
	"github.com/Vector-Wangel/lerobot/internal/core"
	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/shared"
	"github.com/Vector-Wangel/lerobot/internal/types"
)

// ValidateAssembly checks an assembly descriptor without touching any
// hardware. Every error carries CodeInvalidArgument so callers can map
// it to a usage failure.
func ValidateAssembly(ctx context.Context, cfg types.AssemblyConfig) error {
	if cfg.Mode != types.BusModeShared && cfg.Mode != types.BusModeSeparate {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("mode must be %s or %s, got %q",
				types.BusModeShared, types.BusModeSeparate, cfg.Mode))
	}
	if len(cfg.Components) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("components must not be empty")
	}
	if cfg.Mode == types.BusModeShared && len(cfg.Buses) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("shared_buses mode requires at least one bus")
	}
	for _, name := range shared.SortedKeys(cfg.Buses) {
		bus := cfg.Buses[name]
		assert.NotEmpty(ctx, name, "bus name must be set")
		if bus.Type != types.BusTypeFeetech {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("bus %s: unsupported type %q", name, bus.Type))
		}
		if bus.Port == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("bus %s: port must be set", name))
		}
	}
	seen := map[string]struct{}{}
	for _, component := range cfg.Components {
		if component.Name == "" || component.Type == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("every component needs a name and a type")
		}
		if _, dup := seen[component.Name]; dup {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("duplicate component name " + component.Name)
		}
		seen[component.Name] = struct{}{}
		if cfg.Mode == types.BusModeShared {
			if _, ok := cfg.Buses[component.Bus]; !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("component %s references unknown bus %q",
						component.Name, component.Bus))
			}
		}
	}
	return nil
}

// BuildAssembly turns a validated descriptor into a bound assembly.
// All-or-nothing: any failure returns before a single byte hits a
// serial port, since connection only happens on the first Acquire.
func BuildAssembly(ctx context.Context, cfg types.AssemblyConfig, factory ports.BusFactory) (*Assembly, error) {
	if err := ValidateAssembly(ctx, cfg); err != nil {
		return nil, err
	}

	assembly := &Assembly{
		Mode:     cfg.Mode,
		Managers: map[string]*core.BusManager{},
	}
	if cfg.Mode == types.BusModeShared {
		for _, name := range shared.SortedKeys(cfg.Buses) {
			assembly.Managers[name] = core.NewBusManager(name, cfg.Buses[name], factory)
		}
	}

	for _, componentCfg := range cfg.Components {
		binding, err := bindComponent(assembly, componentCfg)
		if err != nil {
			return nil, err
		}
		assembly.Bindings = append(assembly.Bindings, binding)
	}

	log.Ctx(ctx).Debug().
		Str("mode", string(cfg.Mode)).
		Int("buses", len(assembly.Managers)).
		Int("components", len(assembly.Bindings)).
		Msg("assembly built")
	return assembly, nil
}

func bindComponent(assembly *Assembly, componentCfg types.ComponentConfig) (ComponentBinding, error) {
	builder, err := components.Lookup(componentCfg.Type)
	if err != nil {
		return ComponentBinding{}, err
	}

	deviceCfg := shared.CloneMap(componentCfg.Config)
	if _, ok := deviceCfg["id"]; !ok {
		deviceCfg["id"] = componentCfg.Name
	}

	var manager *core.BusManager
	handshake := true
	if assembly.Mode == types.BusModeShared {
		manager = assembly.Managers[componentCfg.Bus]
		busCfg := manager.Config()
		handshake = busCfg.HandshakeOnConnect
		// Sub-devices on a shared bus inherit the bus's transport
		// settings; their own port option is ignored.
		deviceCfg["port"] = busCfg.Port
		deviceCfg["protocol_version"] = busCfg.ProtocolVersion
	}

	component, err := builder(deviceCfg)
	if err != nil {
		return ComponentBinding{}, err
	}

	if manager != nil {
		view, err := manager.RegisterComponent(
			componentCfg.Name,
			component.Bus().Motors(),
			componentCfg.Prefix,
			componentCfg.IDOffset,
			component.Calibration(),
		)
		if err != nil {
			return ComponentBinding{}, err
		}
		component.SetBus(view)
	}

	aliases := append([]string{}, componentCfg.ActionAliases...)
	if componentCfg.Prefix != "" {
		aliases = appendMissing(aliases, componentCfg.Prefix)
	}

	return ComponentBinding{
		Name:      componentCfg.Name,
		Role:      componentCfg.Role,
		Prefix:    componentCfg.Prefix,
		Aliases:   aliases,
		Component: component,
		Manager:   manager,
		Handshake: handshake,
	}, nil
}

func appendMissing(aliases []string, alias string) []string {
	for _, existing := range aliases {
		if existing == alias {
			return aliases
		}
	}
	return append(aliases, alias)
}

// Connect brings every bound component online. Shared buses connect
// physically once, on the first component that reaches them.
func (a *Assembly) Connect() error {
	for i, binding := range a.Bindings {
		if err := binding.Component.Bus().Connect(binding.Handshake); err != nil {
			// Roll back the components already connected.
			for j := i - 1; j >= 0; j-- {
				_ = a.Bindings[j].Component.Bus().Disconnect(false)
			}
			return err
		}
	}
	return nil
}

// Disconnect takes every component offline in reverse binding order.
func (a *Assembly) Disconnect(disableTorque bool) error {
	var firstErr error
	for i := len(a.Bindings) - 1; i >= 0; i-- {
		if err := a.Bindings[i].Component.Bus().Disconnect(disableTorque); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Binding looks a bound component up by name or alias.
func (a *Assembly) Binding(name string) (ComponentBinding, error) {
	for _, binding := range a.Bindings {
		if binding.Name == name {
			return binding, nil
		}
		for _, alias := range binding.Aliases {
			if alias == name {
				return binding, nil
			}
		}
	}
	return ComponentBinding{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("no component named " + name + " in this assembly")
}
