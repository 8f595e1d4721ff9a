package feetech

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// register describes one control-table entry: its EEPROM/SRAM address
// and width in bytes.
type register struct {
	Addr byte
	Size int
}

// Control table for the STS/SMS series (STS3215 and friends). SCS
// servos share the addresses used here.
var controlTable = map[string]register{
	"Model_Number":        {Addr: 3, Size: 2},
	"ID":                  {Addr: 5, Size: 1},
	"Baud_Rate":           {Addr: 6, Size: 1},
	"Return_Delay_Time":   {Addr: 7, Size: 1},
	"Min_Position_Limit":  {Addr: 9, Size: 2},
	"Max_Position_Limit":  {Addr: 11, Size: 2},
	"Homing_Offset":       {Addr: 31, Size: 2},
	"Operating_Mode":      {Addr: 33, Size: 1},
	"Torque_Enable":       {Addr: 40, Size: 1},
	"Acceleration":        {Addr: 41, Size: 1},
	"Goal_Position":       {Addr: 42, Size: 2},
	"Goal_Time":           {Addr: 44, Size: 2},
	"Goal_Velocity":       {Addr: 46, Size: 2},
	"Lock":                {Addr: 55, Size: 1},
	"Present_Position":    {Addr: 56, Size: 2},
	"Present_Velocity":    {Addr: 58, Size: 2},
	"Present_Load":        {Addr: 60, Size: 2},
	"Present_Voltage":     {Addr: 62, Size: 1},
	"Present_Temperature": {Addr: 63, Size: 1},
	"Moving":              {Addr: 66, Size: 1},
	"Present_Current":     {Addr: 69, Size: 2},
}

// Model numbers reported at Model_Number for the servos we drive.
var modelNumbers = map[string]int{
	"sts3215": 777,
	"sts3250": 2825,
	"scs0009": 1284,
}

// Baud_Rate register values to wire rates.
var baudRates = map[int]int{
	1000000: 0,
	500000:  1,
	250000:  2,
	128000:  3,
	115200:  4,
	57600:   5,
	38400:   6,
	19200:   7,
}

const (
	defaultBaudRate = 1000000

	// Full resolution of a 12-bit position encoder and the half-turn
	// position used as the homing target.
	positionResolution = 4096
	halfTurn           = 2047
)

func lookupRegister(name string) (register, error) {
	reg, ok := controlTable[name]
	if !ok {
		return register{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown control table register: %s", name))
	}
	return reg, nil
}
