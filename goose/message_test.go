package goose_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridstream/sv92/goose"
)

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
	frame = append(frame, make([]byte, 12)...) // dst+src MAC, unused by decoder
	frame = append(frame, 0x88, 0xB8)           // EtherType
	frame = append(frame, 0x00, 0x01)           // AppID
	frame = append(frame, 0x00, 0x00)           // length, unused
	frame = append(frame, 0x00, 0x00, 0x00, 0x00) // reserved1+2
	frame = append(frame, pdu...)
	return frame
}

func TestDecodeValidGoose(t *testing.T) {
	frame := buildGooseFrame("IED1/LLN0$GO$GOOSE_CTRL", 5, 9)
	msg := goose.Decode(frame)
	assert.True(t, msg.Valid)
	assert.Equal(t, "IED1/LLN0$GO$GOOSE_CTRL", msg.GoCBRef)
	assert.EqualValues(t, 5, msg.StNum)
	assert.EqualValues(t, 9, msg.SqNum)
}

func TestDecodeWithVLANTag(t *testing.T) {
	frame := buildGooseFrame("REF", 1, 1)
	// insert a VLAN tag after the 12-byte MAC prefix
	tagged := make([]byte, 0, len(frame)+4)
	tagged = append(tagged, frame[:12]...)
	tagged = append(tagged, 0x81, 0x00, 0x20, 0x00)
	tagged = append(tagged, frame[12:]...)

	msg := goose.Decode(tagged)
	assert.True(t, msg.Valid)
	assert.Equal(t, "REF", msg.GoCBRef)
}

func TestDecodeTruncatedFrameIsInvalid(t *testing.T) {
	msg := goose.Decode([]byte{0x01, 0x02, 0x03})
	assert.False(t, msg.Valid)
}

func TestDecodeNonGooseEtherTypeIsInvalid(t *testing.T) {
	frame := buildGooseFrame("REF", 1, 1)
	frame[13] = 0xBA // corrupt EtherType low byte away from 0x88B8
	msg := goose.Decode(frame)
	assert.False(t, msg.Valid)
}
