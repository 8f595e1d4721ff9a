package feetech

import (
	"io"
	"time"
)

// MockPort implements Porter for testing. Reads consume from ReadData,
// writes accumulate into WrittenData; tests enqueue the status packets
// a real servo chain would answer with.
type MockPort struct {
	ReadData    []byte
	WrittenData []byte
	ReadError   error
	WriteError  error
	CloseError  error
	Closed      bool
	ReadTimeout time.Duration
}

func (m *MockPort) Read(p []byte) (int, error) {
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	if len(m.ReadData) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.Closed = true
	return m.CloseError
}

func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.ReadTimeout = t
	return nil
}

// Enqueue appends a raw status packet to the pending read data.
func (m *MockPort) Enqueue(data []byte) {
	m.ReadData = append(m.ReadData, data...)
}

// EnqueueStatus builds and appends a well-formed status packet.
func (m *MockPort) EnqueueStatus(id byte, errByte byte, params []byte) {
	length := byte(len(params) + 2)
	packet := []byte{headerByte, headerByte, id, length, errByte}
	packet = append(packet, params...)
	packet = append(packet, checksum(packet[2:]))
	m.Enqueue(packet)
}
