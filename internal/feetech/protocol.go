package feetech

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Feetech SCS/STS instruction set.
const (
	instrPing      = 0x01
	instrRead      = 0x02
	instrWrite     = 0x03
	instrRegWrite  = 0x04
	instrAction    = 0x05
	instrReset     = 0x06
	instrSyncRead  = 0x82
	instrSyncWrite = 0x83
)

const (
	broadcastID = 0xFE
	headerByte  = 0xFF

	// Protocol version 0 covers STS/SMS servos (low byte first),
	// version 1 covers SCS servos (high byte first, no sync read).
	protocolSTS = 0
	protocolSCS = 1
)

// frame is one instruction packet:
// 0xFF 0xFF id len instruction params... checksum
// where len counts instruction + params + checksum and the checksum is
// the inverted low byte of the sum of id, len, instruction and params.
type frame struct {
	ID          byte
	Instruction byte
	Params      []byte
}

func (f frame) encode() []byte {
	length := byte(len(f.Params) + 2)
	out := make([]byte, 0, len(f.Params)+6)
	out = append(out, headerByte, headerByte, f.ID, length, f.Instruction)
	out = append(out, f.Params...)
	out = append(out, checksum(out[2:]))
	return out
}

// statusPacket is a servo reply:
// 0xFF 0xFF id len error params... checksum
type statusPacket struct {
	ID     byte
	Error  byte
	Params []byte
}

func checksum(body []byte) byte {
	var sum int
	for _, b := range body {
		sum += int(b)
	}
	return byte(^sum) & 0xFF
}

// decodeStatus parses one status packet from the front of data. The
// returned byte count tells the caller how far to advance: zero means
// the packet is still incomplete, a nonzero count alongside an error
// skips corrupt bytes so the stream can resync.
func decodeStatus(data []byte) (statusPacket, int, error) {
	if len(data) < 6 {
		return statusPacket{}, 0, errShortPacket(len(data))
	}
	if data[0] != headerByte || data[1] != headerByte {
		return statusPacket{}, 1, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("bad status header: % x", data[:2]))
	}
	length := int(data[3])
	total := 4 + length
	if len(data) < total {
		return statusPacket{}, 0, errShortPacket(len(data))
	}
	if got, want := data[total-1], checksum(data[2:total-1]); got != want {
		return statusPacket{}, total, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("status checksum mismatch: got %#x want %#x", got, want))
	}
	return statusPacket{
		ID:     data[2],
		Error:  data[4],
		Params: data[5 : total-1],
	}, total, nil
}

func errShortPacket(n int) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("status packet too short: %d bytes", n))
}

// encodeValue splits a register value into its wire bytes. STS servos
// put the low byte first, SCS servos the high byte.
func encodeValue(value int, size int, protocolVersion int) []byte {
	if size == 1 {
		return []byte{byte(value)}
	}
	lo := byte(value)
	hi := byte(value >> 8)
	if protocolVersion == protocolSCS {
		return []byte{hi, lo}
	}
	return []byte{lo, hi}
}

func decodeValue(data []byte, protocolVersion int) int {
	if len(data) == 1 {
		return int(data[0])
	}
	if protocolVersion == protocolSCS {
		return int(data[0])<<8 | int(data[1])
	}
	return int(data[1])<<8 | int(data[0])
}

// encodeSignMagnitude packs a signed value into the sign-magnitude
// layout Feetech uses for Homing_Offset: bit 11 carries the sign.
func encodeSignMagnitude(value int) int {
	if value < 0 {
		return -value | (1 << 11)
	}
	return value
}

func decodeSignMagnitude(raw int) int {
	magnitude := raw &^ (1 << 11)
	if raw&(1<<11) != 0 {
		return -magnitude
	}
	return magnitude
}
