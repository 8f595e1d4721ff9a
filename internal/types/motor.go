package types

// Motor describes one addressable servo on a bus: its wire id, hardware
// model tag, and the normalization applied to position values.
// Motors are immutable once constructed; renumbering for a shared bus
// produces a new value rather than mutating the original.
type Motor struct {
	ID       int      `yaml:"id"`
	Model    string   `yaml:"model"`
	NormMode NormMode `yaml:"norm_mode"`
}

// MotorCalibration is the per-motor calibration payload. The shared-bus
// core treats it as opaque and only keys it by motor name; the feetech
// handle uses it for normalization and EEPROM writes.
type MotorCalibration struct {
	ID           int `yaml:"id"`
	DriveMode    int `yaml:"drive_mode"`
	HomingOffset int `yaml:"homing_offset"`
	RangeMin     int `yaml:"range_min"`
	RangeMax     int `yaml:"range_max"`
}
