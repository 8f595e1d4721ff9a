package types

type NormMode string

const (
	NormModeRange0To100    NormMode = "range_0_100"
	NormModeRangeM100To100 NormMode = "range_m100_100"
	NormModeDegrees        NormMode = "degrees"
	NormModeNone           NormMode = "none"
)

type BusType string

const (
	BusTypeFeetech BusType = "feetech"
)

type BusMode string

const (
	BusModeSeparate BusMode = "separate_buses"
	BusModeShared   BusMode = "shared_buses"
)
