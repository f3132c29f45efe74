package transmitter_test

import "github.com/google/uuid"

func uuidZero() uuid.UUID { return uuid.UUID{} }

func appendBER(buf []byte, tag byte, value []byte) []byte {
	buf = append(buf, tag)
	if len(value) <= 127 {
		buf = append(buf, byte(len(value)))
	} else {
		buf = append(buf, 0x81, byte(len(value)))
	}
	return append(buf, value...)
}

func buildGooseFrame(gocbRef string, stNum, sqNum uint32) []byte {
	var pduBody []byte
	pduBody = appendBER(pduBody, 0x80, []byte(gocbRef))
	pduBody = appendBER(pduBody, 0x85, []byte{byte(stNum >> 24), byte(stNum >> 16), byte(stNum >> 8), byte(stNum)})
	pduBody = appendBER(pduBody, 0x86, []byte{byte(sqNum >> 24), byte(sqNum >> 16), byte(sqNum >> 8), byte(sqNum)})

	var pdu []byte
	pdu = append(pdu, 0x61)
	pdu = append(pdu, byte(len(pduBody)))
	pdu = append(pdu, pduBody...)

	frame := make([]byte, 0, 32+len(pdu))
	frame = append(frame, make([]byte, 12)...)
	frame = append(frame, 0x88, 0xB8)
	frame = append(frame, 0x00, 0x01)
	frame = append(frame, 0x00, 0x00)
	frame = append(frame, 0x00, 0x00, 0x00, 0x00)
	frame = append(frame, pdu...)
	return frame
}
