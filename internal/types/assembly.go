package types

// BusConfig describes one physical shared bus in an assembly file.
//
// Only feetech buses are supported; the type field exists so a future
// dynamixel entry fails validation loudly instead of half-working.
type BusConfig struct {
	// Type is the bus driver type. The only accepted value is "feetech".
	Type BusType `yaml:"type"`

	// Port is the serial device path, e.g. "/dev/ttyACM0".
	Port string `yaml:"port"`

	// ProtocolVersion selects the Feetech wire protocol: 0 for STS/SMS
	// servos, 1 for SCS servos (no sync read support).
	ProtocolVersion int `yaml:"protocol_version"`

	// HandshakeOnConnect pings every registered motor on the first
	// physical connect and verifies it answers.
	HandshakeOnConnect bool `yaml:"handshake_on_connect"`
}

// ComponentConfig describes one sub-device attached to a shared bus.
type ComponentConfig struct {
	// Name uniquely identifies the component inside the assembly.
	Name string `yaml:"name"`

	// Type must resolve in the fixed component registry,
	// e.g. "so101_follower", "lekiwi_base", "xlerobot_mount".
	Type string `yaml:"type"`

	// Role is consumed by the surrounding dispatch layer ("arm", "base", ...).
	Role string `yaml:"role"`

	// Bus keys a BusConfig entry in the same assembly file.
	Bus string `yaml:"bus"`

	// Prefix is prepended to every local motor name to place it in the
	// bus-global namespace.
	Prefix string `yaml:"prefix"`

	// IDOffset is added to every local motor id.
	IDOffset int `yaml:"id_offset"`

	// ActionAliases are extra names the dispatch layer accepts for this
	// component. The prefix is appended automatically when set.
	ActionAliases []string `yaml:"action_aliases"`

	// Config is merged into the sub-device's own configuration. The port
	// field defaults to the owning bus's port when absent.
	Config map[string]any `yaml:"config"`
}

// AssemblyConfig is the top-level structure of an assembly yaml file.
type AssemblyConfig struct {
	// Mode selects separate_buses (private bus per component, shared
	// layer not engaged) or shared_buses.
	Mode BusMode `yaml:"mode"`

	// Buses maps bus names to shared bus descriptors. Required in
	// shared_buses mode.
	Buses map[string]BusConfig `yaml:"buses"`

	// Components lists the sub-devices to assemble. Required in
	// shared_buses mode.
	Components []ComponentConfig `yaml:"components"`
}
