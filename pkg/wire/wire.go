// Package wire encodes and decodes the line protocol spoken between the
// acquisition agent and a host.
//
// Every message is one text line; fields are separated by commas.
//
//	host -> agent   s<run>,<rateHz>,<mask>   configure
//	host -> agent   i                        info query
//	agent -> host   OK | ERR | READY
//	agent -> host   <board>,<n>,<rate>,<labels...>,,<flags...>
//	agent -> host   <v0>,<v1>,...             sample line
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Response tokens.
const (
	OK    = "OK"
	ERR   = "ERR"
	Ready = "READY"
)

// Separator between fields of a line.
const Separator = ","

// Command is the kind of a host line, decided by its first character.
type Command int

const (
	Unknown Command = iota
	Configure
	Query
)

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case Configure:
		return "configure"
	case Query:
		return "info"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedCommand = errors.New("malformed configuration command")
	ErrMissingField     = errors.New("missing field")
	ErrInvalidRate      = errors.New("invalid sample rate")
	ErrShortMask        = errors.New("channel mask shorter than channel count")
	ErrMalformedInfo    = errors.New("malformed info line")
	ErrMalformedSample  = errors.New("malformed sample line")
)

// Kind classifies a host line by its first character.
func Kind(line string) Command {
	if line == "" {
		return Unknown
	}
	switch line[0] {
	case 's':
		return Configure
	case 'i':
		return Query
	default:
		return Unknown
	}
}

// Settings is a decoded configuration command.
type Settings struct {
	Run    bool
	RateHz int
	Mask   []bool
}

// ParseSettings decodes "s<run>,<rateHz>,<mask>" for a board with the given
// number of channels. The whole line is validated before anything is
// returned so callers can apply the result atomically.
//
// The mask must cover every channel; characters past the channel count are
// ignored. Rates below 1 are rejected.
func ParseSettings(line string, channels int) (Settings, error) {
	line = strings.TrimSpace(line)
	if Kind(line) != Configure || len(line) < 2 {
		return Settings{}, fmt.Errorf("%w: %q", ErrMalformedCommand, line)
	}

	parts := strings.SplitN(line, Separator, 3)
	if len(parts) != 3 {
		return Settings{}, fmt.Errorf("%w: %w: expected 3 fields, got %d", ErrMalformedCommand, ErrMissingField, len(parts))
	}
	// The run flag sits at a fixed position; anything between it and the
	// first separator is not part of the grammar.
	if len(parts[0]) != 2 {
		return Settings{}, fmt.Errorf("%w: run flag %q", ErrMalformedCommand, parts[0][1:])
	}

	rate, err := strconv.Atoi(parts[1])
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w: %q", ErrMalformedCommand, ErrInvalidRate, parts[1])
	}
	if rate < 1 {
		return Settings{}, fmt.Errorf("%w: %w: %d", ErrMalformedCommand, ErrInvalidRate, rate)
	}

	maskStr := parts[2]
	if len(maskStr) < channels {
		return Settings{}, fmt.Errorf("%w: %w: got %d characters, need %d", ErrMalformedCommand, ErrShortMask, len(maskStr), channels)
	}

	mask := make([]bool, channels)
	for i := range mask {
		mask[i] = maskStr[i] == '1'
	}

	return Settings{
		Run:    line[1] == '1',
		RateHz: rate,
		Mask:   mask,
	}, nil
}

// Line encodes the settings as a configuration command.
func (s Settings) Line() string {
	run := byte('0')
	if s.Run {
		run = '1'
	}
	return "s" + string(run) + Separator + strconv.Itoa(s.RateHz) + Separator + FormatMask(s.Mask)
}

// FormatMask renders flags as a string of '1' and '0'.
func FormatMask(mask []bool) string {
	b := make([]byte, len(mask))
	for i, on := range mask {
		if on {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// Info is the reply to an info query.
type Info struct {
	Board   string
	RateHz  int
	Labels  []string
	Enabled []bool
}

// Channels returns the number of channels described.
func (i Info) Channels() int {
	return len(i.Labels)
}

// FormatInfo encodes an info reply. Labels and flags are separated by an
// empty field so the host can split the two lists.
func FormatInfo(info Info) string {
	fields := make([]string, 0, 4+2*len(info.Labels))
	fields = append(fields, info.Board, strconv.Itoa(len(info.Labels)), strconv.Itoa(info.RateHz))
	fields = append(fields, info.Labels...)
	fields = append(fields, "")
	for _, on := range info.Enabled {
		if on {
			fields = append(fields, "1")
		} else {
			fields = append(fields, "0")
		}
	}
	return strings.Join(fields, Separator)
}

// IsInfo reports whether a line from the agent looks like an info reply.
// Sample lines never contain empty fields.
func IsInfo(line string) bool {
	return strings.Contains(line, Separator+Separator)
}

// ParseInfo decodes an info reply.
func ParseInfo(line string) (Info, error) {
	fields := strings.Split(strings.TrimSpace(line), Separator)
	if len(fields) < 3 {
		return Info{}, fmt.Errorf("%w: expected at least 3 fields, got %d", ErrMalformedInfo, len(fields))
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return Info{}, fmt.Errorf("%w: channel count %q", ErrMalformedInfo, fields[1])
	}
	rate, err := strconv.Atoi(fields[2])
	if err != nil {
		return Info{}, fmt.Errorf("%w: sample rate %q", ErrMalformedInfo, fields[2])
	}

	// board, count, rate, n labels, empty, n flags
	if want := 3 + n + 1 + n; len(fields) != want {
		return Info{}, fmt.Errorf("%w: expected %d fields for %d channels, got %d", ErrMalformedInfo, want, n, len(fields))
	}
	if fields[3+n] != "" {
		return Info{}, fmt.Errorf("%w: missing empty field after labels", ErrMalformedInfo)
	}

	info := Info{
		Board:   fields[0],
		RateHz:  rate,
		Labels:  append([]string(nil), fields[3:3+n]...),
		Enabled: make([]bool, n),
	}
	for i, f := range fields[4+n:] {
		switch f {
		case "1":
			info.Enabled[i] = true
		case "0":
		default:
			return Info{}, fmt.Errorf("%w: enabled flag %q", ErrMalformedInfo, f)
		}
	}

	return info, nil
}

// AppendSample appends a sample line to dst without the line terminator.
func AppendSample(dst []byte, values []int) []byte {
	for i, v := range values {
		if i > 0 {
			dst = append(dst, Separator...)
		}
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	return dst
}

// FormatSample encodes readings as a sample line.
func FormatSample(values []int) string {
	return string(AppendSample(nil, values))
}

// ParseSample decodes a sample line. An empty line carries no values.
func ParseSample(line string) ([]int, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return []int{}, nil
	}

	parts := strings.Split(line, Separator)
	values := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %q", ErrMalformedSample, i, p)
		}
		values[i] = v
	}
	return values, nil
}
