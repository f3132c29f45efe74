package comtrade

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Parser holds the result of a successful Load and is safe for concurrent
// read-only access thereafter.
type Parser struct {
	config  Config
	samples []Sample
	loaded  bool
	lastErr string
}

// Load parses cfgPath and its companion dat file. When datPath is empty the
// dat file is assumed to sit alongside the cfg file with a .dat extension.
// On failure the parser retains no partial state.
func (p *Parser) Load(cfgPath, datPath string) error {
	*p = Parser{}

	if err := p.parseCfg(cfgPath); err != nil {
		p.lastErr = err.Error()
		return err
	}

	if datPath == "" {
		datPath = strings.TrimSuffix(cfgPath, fileExt(cfgPath)) + ".dat"
	}

	var err error
	switch p.config.DataFormat {
	case FormatASCII:
		err = p.parseDatASCII(datPath)
	case FormatBinary:
		err = p.parseDatBinary(datPath, 2)
	case FormatBinary32:
		err = p.parseDatBinary(datPath, 4)
	default:
		err = fmt.Errorf("comtrade: unknown data format %q", p.config.DataFormat)
	}
	if err != nil {
		*p = Parser{}
		p.lastErr = err.Error()
		return err
	}

	p.config.TotalSamples = len(p.samples)
	p.loaded = true
	log.Debug().Str("cfg", cfgPath).Int("samples", p.config.TotalSamples).
		Int("analog", len(p.config.AnalogChannels)).Msg("comtrade file loaded")
	return nil
}

func fileExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

// Config returns the parsed configuration. Valid only after a successful Load.
func (p *Parser) Config() Config { return p.config }

// IsLoaded reports whether Load has completed successfully.
func (p *Parser) IsLoaded() bool { return p.loaded }

// LastError returns the most recent error message, mirroring the original's
// poll-rather-than-check contract for callers that prefer it to an error return.
func (p *Parser) LastError() string { return p.lastErr }

// Sample returns the sample at index, or false if index is out of range.
func (p *Parser) Sample(index int) (Sample, bool) {
	if index < 0 || index >= len(p.samples) {
		return Sample{}, false
	}
	return p.samples[index], true
}

// Samples returns every parsed sample, in order.
func (p *Parser) Samples() []Sample { return p.samples }

// AnalogChannel looks up a channel by identifier.
func (p *Parser) AnalogChannel(name string) (AnalogChannel, bool) {
	return p.config.AnalogChannelByName(name)
}

// SampleRateAt returns the sampling rate, in Hz, applicable to sampleIndex.
func (p *Parser) SampleRateAt(sampleIndex int) float64 {
	return p.config.SampleRateAt(sampleIndex)
}

func splitTrim(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func (p *Parser) parseCfg(cfgPath string) error {
	f, err := os.Open(cfgPath)
	if err != nil {
		return fmt.Errorf("comtrade: open cfg: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	nextLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNum++
		return scanner.Text(), true
	}

	line, ok := nextLine()
	if !ok {
		return &ParseError{lineNum, fmt.Errorf("empty .cfg file")}
	}
	tokens := splitTrim(line)
	if len(tokens) < 2 {
		return &ParseError{lineNum, fmt.Errorf("invalid station line")}
	}
	cfg := Config{StationName: tokens[0], RecDeviceID: tokens[1], RevisionYear: 1991}
	if len(tokens) >= 3 {
		if y, err := strconv.Atoi(tokens[2]); err == nil {
			cfg.RevisionYear = y
		}
	}

	line, ok = nextLine()
	if !ok {
		return &ParseError{lineNum, fmt.Errorf("missing channel count line")}
	}
	tokens = splitTrim(line)
	if len(tokens) < 3 {
		return &ParseError{lineNum, fmt.Errorf("invalid channel count line")}
	}
	total, err := strconv.Atoi(tokens[0])
	if err != nil {
		return &ParseError{lineNum, err}
	}
	cfg.TotalChannels = total
	numAnalog, err := strconv.Atoi(stripTrailingLetter(tokens[1]))
	if err != nil {
		return &ParseError{lineNum, err}
	}
	numDigital, err := strconv.Atoi(stripTrailingLetter(tokens[2]))
	if err != nil {
		return &ParseError{lineNum, err}
	}

	cfg.AnalogChannels = make([]AnalogChannel, 0, numAnalog)
	for i := 0; i < numAnalog; i++ {
		line, ok = nextLine()
		if !ok {
			return &ParseError{lineNum, fmt.Errorf("missing analog channel line")}
		}
		ch, err := parseAnalogChannelLine(line)
		if err != nil {
			return &ParseError{lineNum, err}
		}
		cfg.AnalogChannels = append(cfg.AnalogChannels, ch)
	}

	cfg.DigitalChannels = make([]DigitalChannel, 0, numDigital)
	for i := 0; i < numDigital; i++ {
		line, ok = nextLine()
		if !ok {
			return &ParseError{lineNum, fmt.Errorf("missing digital channel line")}
		}
		ch, err := parseDigitalChannelLine(line)
		if err != nil {
			return &ParseError{lineNum, err}
		}
		cfg.DigitalChannels = append(cfg.DigitalChannels, ch)
	}

	line, ok = nextLine()
	if !ok {
		return &ParseError{lineNum, fmt.Errorf("missing line frequency")}
	}
	cfg.LineFreqHz, err = strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return &ParseError{lineNum, err}
	}

	line, ok = nextLine()
	if !ok {
		return &ParseError{lineNum, fmt.Errorf("missing sample rate count")}
	}
	numRates, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return &ParseError{lineNum, err}
	}
	cfg.SampleRates = make([]SampleRate, 0, numRates)
	for i := 0; i < numRates; i++ {
		line, ok = nextLine()
		if !ok {
			return &ParseError{lineNum, fmt.Errorf("missing sample rate entry")}
		}
		tokens = splitTrim(line)
		if len(tokens) < 2 {
			continue
		}
		rate, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil {
			return &ParseError{lineNum, err}
		}
		end, err := strconv.Atoi(tokens[1])
		if err != nil {
			return &ParseError{lineNum, err}
		}
		cfg.SampleRates = append(cfg.SampleRates, SampleRate{RateHz: rate, EndSample: end})
	}

	line, ok = nextLine()
	if !ok {
		return &ParseError{lineNum, fmt.Errorf("missing start date line")}
	}
	tokens = splitTrim(line)
	if len(tokens) >= 2 {
		cfg.StartDate, cfg.StartTime = tokens[0], tokens[1]
	}

	// trigger date/time line, skipped
	nextLine()

	line, ok = nextLine()
	if !ok {
		return &ParseError{lineNum, fmt.Errorf("missing data format line")}
	}
	format := DataFormat(strings.TrimSpace(line))
	switch format {
	case FormatASCII, FormatBinary, FormatBinary32:
		cfg.DataFormat = format
	default:
		return &ParseError{lineNum, fmt.Errorf("unknown data format %q", format)}
	}

	cfg.TimeFactor = 1.0
	if line, ok = nextLine(); ok {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if tf, err := strconv.ParseFloat(trimmed, 64); err == nil {
				cfg.TimeFactor = tf
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return &ParseError{lineNum, err}
	}

	p.config = cfg
	return nil
}

func stripTrailingLetter(s string) string {
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if (last >= 'A' && last <= 'Z') || (last >= 'a' && last <= 'z') {
		return s[:len(s)-1]
	}
	return s
}

func parseAnalogChannelLine(line string) (AnalogChannel, error) {
	tokens := splitTrim(line)
	if len(tokens) < 13 {
		return AnalogChannel{}, fmt.Errorf("analog channel line has %d fields, want >= 13", len(tokens))
	}
	idx, err := strconv.Atoi(tokens[0])
	if err != nil {
		return AnalogChannel{}, err
	}
	var ch AnalogChannel
	ch.Index = idx - 1
	ch.Name = tokens[1]
	ch.Phase = tokens[2]
	ch.Units = tokens[4]
	if ch.A, err = strconv.ParseFloat(tokens[5], 64); err != nil {
		return AnalogChannel{}, err
	}
	if ch.B, err = strconv.ParseFloat(tokens[6], 64); err != nil {
		return AnalogChannel{}, err
	}
	if ch.Skew, err = strconv.ParseFloat(tokens[7], 64); err != nil {
		return AnalogChannel{}, err
	}
	if ch.Min, err = strconv.ParseFloat(tokens[8], 64); err != nil {
		return AnalogChannel{}, err
	}
	if ch.Max, err = strconv.ParseFloat(tokens[9], 64); err != nil {
		return AnalogChannel{}, err
	}
	if ch.Primary, err = strconv.ParseFloat(tokens[10], 64); err != nil {
		return AnalogChannel{}, err
	}
	if ch.Secondary, err = strconv.ParseFloat(tokens[11], 64); err != nil {
		return AnalogChannel{}, err
	}
	ch.PS = 'P'
	if len(tokens) >= 13 && tokens[12] != "" {
		ch.PS = tokens[12][0]
	}
	return ch, nil
}

func parseDigitalChannelLine(line string) (DigitalChannel, error) {
	tokens := splitTrim(line)
	if len(tokens) < 5 {
		return DigitalChannel{}, fmt.Errorf("digital channel line has %d fields, want >= 5", len(tokens))
	}
	idx, err := strconv.Atoi(tokens[0])
	if err != nil {
		return DigitalChannel{}, err
	}
	normal, err := strconv.Atoi(tokens[4])
	if err != nil {
		return DigitalChannel{}, err
	}
	return DigitalChannel{Index: idx - 1, Name: tokens[1], NormalState: normal}, nil
}

// scale applies secondary = a*raw + b, then primary-referred = secondary * ratio.
func scale(ch AnalogChannel, raw float64) float64 {
	secondary := ch.A*raw + ch.B
	return secondary * ch.Ratio()
}

func (p *Parser) parseDatASCII(datPath string) error {
	f, err := os.Open(datPath)
	if err != nil {
		return fmt.Errorf("comtrade: open dat: %w", err)
	}
	defer f.Close()

	expected := 2 + len(p.config.AnalogChannels) + len(p.config.DigitalChannels)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens := splitTrim(scanner.Text())
		if len(tokens) < expected {
			continue // tolerated malformation
		}
		sample, ok := decodeASCIISample(tokens, p.config)
		if !ok {
			continue
		}
		p.samples = append(p.samples, sample)
	}
	return scanner.Err()
}

func decodeASCIISample(tokens []string, cfg Config) (Sample, bool) {
	sampleNum, err := strconv.Atoi(tokens[0])
	if err != nil {
		return Sample{}, false
	}
	timeSec, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return Sample{}, false
	}
	sample := Sample{
		SampleNumber: sampleNum,
		TimestampUs:  uint64(timeSec * cfg.TimeFactor * 1e6),
		Analog:       make([]float64, len(cfg.AnalogChannels)),
		Digital:      make([]bool, len(cfg.DigitalChannels)),
	}
	for i, ch := range cfg.AnalogChannels {
		raw, err := strconv.ParseFloat(tokens[2+i], 64)
		if err != nil {
			return Sample{}, false
		}
		sample.Analog[i] = scale(ch, raw)
	}
	for i := range cfg.DigitalChannels {
		v, err := strconv.Atoi(tokens[2+len(cfg.AnalogChannels)+i])
		if err != nil {
			return Sample{}, false
		}
		sample.Digital[i] = v != 0
	}
	return sample, true
}

// parseDatBinary handles both BINARY (analogWidth=2) and BINARY32 (analogWidth=4)
// little-endian record layouts: u32 sampleNum, u32 timestampRaw, then analogWidth
// bytes per analog channel, then digital channels bit-packed LSB-first into
// words of analogWidth*8 bits.
func (p *Parser) parseDatBinary(datPath string, analogWidth int) error {
	f, err := os.Open(datPath)
	if err != nil {
		return fmt.Errorf("comtrade: open dat: %w", err)
	}
	defer f.Close()

	numAnalog := len(p.config.AnalogChannels)
	numDigital := len(p.config.DigitalChannels)
	bitsPerWord := analogWidth * 8
	numDigitalWords := (numDigital + bitsPerWord - 1) / bitsPerWord
	recordSize := 8 + numAnalog*analogWidth + numDigitalWords*analogWidth

	buf := make([]byte, recordSize)
	for {
		_, err := io.ReadFull(f, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return fmt.Errorf("comtrade: read dat record: %w", err)
		}

		sampleNum := binary.LittleEndian.Uint32(buf[0:4])
		timestampRaw := binary.LittleEndian.Uint32(buf[4:8])
		sample := Sample{
			SampleNumber: int(sampleNum),
			TimestampUs:  uint64(float64(timestampRaw) * p.config.TimeFactor * 1e6),
			Analog:       make([]float64, numAnalog),
			Digital:      make([]bool, numDigital),
		}

		for i, ch := range p.config.AnalogChannels {
			off := 8 + i*analogWidth
			var raw float64
			if analogWidth == 2 {
				raw = float64(int16(binary.LittleEndian.Uint16(buf[off : off+2])))
			} else {
				raw = float64(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
			}
			sample.Analog[i] = scale(ch, raw)
		}

		digitalOffset := 8 + numAnalog*analogWidth
		for w := 0; w < numDigitalWords; w++ {
			off := digitalOffset + w*analogWidth
			var word uint32
			if analogWidth == 2 {
				word = uint32(binary.LittleEndian.Uint16(buf[off : off+2]))
			} else {
				word = binary.LittleEndian.Uint32(buf[off : off+4])
			}
			for b := 0; b < bitsPerWord; b++ {
				idx := w*bitsPerWord + b
				if idx >= numDigital {
					break
				}
				sample.Digital[idx] = word&(1<<uint(b)) != 0
			}
		}

		p.samples = append(p.samples, sample)
	}
	return nil
}
