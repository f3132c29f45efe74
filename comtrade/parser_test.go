package comtrade_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstream/sv92/comtrade"
)

const asciiCfg = `STATION,DEV1,1999
4,2A,2D
1,IA,A,,A,1.0,0.0,0,-100,100,1,1,P
2,VA,A,,V,2.0,10.0,0,-1000,1000,10,5,S
1,TRIP,,,0
2,ALARM,,,1
60
1
200,10
01/01/2024,00:00:00.000000
01/01/2024,00:00:00.000000
ASCII
1.0
`

const asciiDat = `0,0.0,10,20,1,0
1,0.005,20,30,0,1
`

func writeComtradePair(t *testing.T, dir, cfg, dat string) (string, string) {
	t.Helper()
	cfgPath := filepath.Join(dir, "rec.cfg")
	datPath := filepath.Join(dir, "rec.dat")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(datPath, []byte(dat), 0o644))
	return cfgPath, datPath
}

func TestLoadASCII(t *testing.T) {
	dir := t.TempDir()
	cfgPath, _ := writeComtradePair(t, dir, asciiCfg, asciiDat)

	var p comtrade.Parser
	require.NoError(t, p.Load(cfgPath, ""))

	cfg := p.Config()
	assert.Equal(t, 2, len(cfg.AnalogChannels))
	assert.Equal(t, 2, len(cfg.DigitalChannels))
	assert.Equal(t, comtrade.FormatASCII, cfg.DataFormat)
	assert.Equal(t, 2, p.Config().TotalSamples)

	ia, ok := p.AnalogChannel("IA")
	require.True(t, ok)
	assert.Equal(t, 0, ia.Index)

	s0, ok := p.Sample(0)
	require.True(t, ok)
	// IA: a=1 b=0 primary=1 secondary=1 -> ratio 1 -> 10
	assert.InDelta(t, 10.0, s0.Analog[0], 1e-9)
	// VA: a=2 b=10 raw=20 -> secondary=50, ratio=10/5=2 -> 100
	assert.InDelta(t, 100.0, s0.Analog[1], 1e-9)
	assert.Equal(t, []bool{true, false}, s0.Digital)

	_, ok = p.Sample(99)
	assert.False(t, ok)
}

func TestSampleRateAt(t *testing.T) {
	dir := t.TempDir()
	cfgPath, _ := writeComtradePair(t, dir, asciiCfg, asciiDat)

	var p comtrade.Parser
	require.NoError(t, p.Load(cfgPath, ""))

	assert.Equal(t, 200.0, p.SampleRateAt(0))
	assert.Equal(t, 200.0, p.SampleRateAt(199))
	assert.Equal(t, 200.0, p.SampleRateAt(500)) // past last segment: clamps to last rate
}

const binaryCfg = `STATION,DEV1,1999
5,2A,3D
1,IA,A,,A,1.0,0.0,0,-32768,32767,1,1,P
2,VA,A,,V,2.0,0.0,0,-32768,32767,1,1,P
1,DI1,,,0
2,DI2,,,0
3,DI3,,,0
60
1
1000,10
01/01/2024,00:00:00.000000
01/01/2024,00:00:00.000000
BINARY
1.0
`

const binary32Cfg = `STATION,DEV1,1999
5,2A,3D
1,IA,A,,A,1.0,0.0,0,-32768,32767,1,1,P
2,VA,A,,V,2.0,0.0,0,-32768,32767,1,1,P
1,DI1,,,0
2,DI2,,,0
3,DI3,,,0
60
1
1000,10
01/01/2024,00:00:00.000000
01/01/2024,00:00:00.000000
BINARY32
1.0
`

// digitalWord bit-packs three digital states LSB-first: DI1 is bit 0, DI2 is
// bit 1, DI3 is bit 2. DI1=1, DI2=0, DI3=1 -> 0b101 == 5.
const digitalWord = 0x5

func buildBinaryDatRecord(t *testing.T, sampleNum, timestampRaw uint32, ia, va int16, digital uint16) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, sampleNum))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, timestampRaw))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, ia))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, va))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, digital))
	return buf.Bytes()
}

func buildBinary32DatRecord(t *testing.T, sampleNum, timestampRaw uint32, ia, va int32, digital uint32) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, sampleNum))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, timestampRaw))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, ia))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, va))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, digital))
	return buf.Bytes()
}

func TestLoadBinary(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rec.cfg")
	datPath := filepath.Join(dir, "rec.dat")
	require.NoError(t, os.WriteFile(cfgPath, []byte(binaryCfg), 0o644))

	record := buildBinaryDatRecord(t, 1, 0, 100, 200, digitalWord)
	require.NoError(t, os.WriteFile(datPath, record, 0o644))

	var p comtrade.Parser
	require.NoError(t, p.Load(cfgPath, datPath))

	assert.Equal(t, comtrade.FormatBinary, p.Config().DataFormat)
	require.Equal(t, 1, p.Config().TotalSamples)

	s0, ok := p.Sample(0)
	require.True(t, ok)
	// IA: a=1 b=0, raw=100 -> 100
	assert.InDelta(t, 100.0, s0.Analog[0], 1e-9)
	// VA: a=2 b=0, raw=200 -> 400
	assert.InDelta(t, 400.0, s0.Analog[1], 1e-9)
	assert.Equal(t, []bool{true, false, true}, s0.Digital)
}

func TestLoadBinary32(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rec.cfg")
	datPath := filepath.Join(dir, "rec.dat")
	require.NoError(t, os.WriteFile(cfgPath, []byte(binary32Cfg), 0o644))

	record := buildBinary32DatRecord(t, 1, 0, 100000, 200000, digitalWord)
	require.NoError(t, os.WriteFile(datPath, record, 0o644))

	var p comtrade.Parser
	require.NoError(t, p.Load(cfgPath, datPath))

	assert.Equal(t, comtrade.FormatBinary32, p.Config().DataFormat)
	require.Equal(t, 1, p.Config().TotalSamples)

	s0, ok := p.Sample(0)
	require.True(t, ok)
	assert.InDelta(t, 100000.0, s0.Analog[0], 1e-9)
	assert.InDelta(t, 400000.0, s0.Analog[1], 1e-9)
	assert.Equal(t, []bool{true, false, true}, s0.Digital)
}

func TestLoadMissingCfgFile(t *testing.T) {
	var p comtrade.Parser
	err := p.Load(filepath.Join(t.TempDir(), "missing.cfg"), "")
	require.Error(t, err)
	assert.Equal(t, err.Error(), p.LastError())
}

func TestLoadUnknownDataFormat(t *testing.T) {
	dir := t.TempDir()
	badCfg := `S,D,1999
1,1A,0A
1,IA,A,,A,1,0,0,-1,1,1,1,P
60
1
200,10
01/01/2024,00:00:00
01/01/2024,00:00:00
WEIRD
`
	cfgPath, _ := writeComtradePair(t, dir, badCfg, "")
	var p comtrade.Parser
	err := p.Load(cfgPath, "")
	require.Error(t, err)
	var perr *comtrade.ParseError
	require.ErrorAs(t, err, &perr)
}
