package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"s1,50,1010", Configure},
		{"s", Configure},
		{"i", Query},
		{"info", Query},
		{"x", Unknown},
		{"", Unknown},
		{"S1,50,1010", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.line))
		})
	}
}

func TestParseSettings(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Settings
		wantErr error
	}{
		{
			name: "start two channels",
			line: "s1,50,1010",
			want: Settings{Run: true, RateHz: 50, Mask: []bool{true, false, true, false}},
		},
		{
			name: "stop",
			line: "s0,50,0000",
			want: Settings{Run: false, RateHz: 50, Mask: []bool{false, false, false, false}},
		},
		{
			name: "any other run flag stops",
			line: "sx,100,1111",
			want: Settings{Run: false, RateHz: 100, Mask: []bool{true, true, true, true}},
		},
		{
			name: "non-one mask characters disable",
			line: "s1,10,1a0Z",
			want: Settings{Run: true, RateHz: 10, Mask: []bool{true, false, false, false}},
		},
		{
			name: "trailing carriage return",
			line: "s1,20,0110\r",
			want: Settings{Run: true, RateHz: 20, Mask: []bool{false, true, true, false}},
		},
		{
			name: "longer mask is truncated",
			line: "s1,20,000111",
			want: Settings{Run: true, RateHz: 20, Mask: []bool{false, false, false, true}},
		},
		{
			name:    "short mask",
			line:    "s1,50,10",
			wantErr: ErrShortMask,
		},
		{
			name:    "empty mask",
			line:    "s1,50,",
			wantErr: ErrShortMask,
		},
		{
			name:    "missing separators",
			line:    "s150",
			wantErr: ErrMissingField,
		},
		{
			name:    "non-numeric rate",
			line:    "s1,fast,1111",
			wantErr: ErrInvalidRate,
		},
		{
			name:    "zero rate",
			line:    "s1,0,1111",
			wantErr: ErrInvalidRate,
		},
		{
			name:    "negative rate",
			line:    "s1,-5,1111",
			wantErr: ErrInvalidRate,
		},
		{
			name:    "missing run flag",
			line:    "s,50,1111",
			wantErr: ErrMalformedCommand,
		},
		{
			name:    "run flag too long",
			line:    "s11,50,1111",
			wantErr: ErrMalformedCommand,
		},
		{
			name:    "not a configuration command",
			line:    "i",
			wantErr: ErrMalformedCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSettings(tt.line, 4)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrMalformedCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsLine(t *testing.T) {
	s := Settings{Run: true, RateHz: 50, Mask: []bool{true, false, true, false}}
	assert.Equal(t, "s1,50,1010", s.Line())

	parsed, err := ParseSettings(s.Line(), 4)
	require.NoError(t, err)
	assert.Equal(t, s, parsed)

	stop := Settings{RateHz: 5, Mask: []bool{false, true}}
	assert.Equal(t, "s0,5,01", stop.Line())
}

func TestFormatInfo(t *testing.T) {
	info := Info{
		Board:   "boardX",
		RateHz:  50,
		Labels:  []string{"ch0", "ch1", "ch2", "ch3"},
		Enabled: []bool{true, false, true, false},
	}
	assert.Equal(t, "boardX,4,50,ch0,ch1,ch2,ch3,,1,0,1,0", FormatInfo(info))

	single := Info{Board: "uno", RateHz: 100, Labels: []string{"A0"}, Enabled: []bool{true}}
	assert.Equal(t, "uno,1,100,A0,,1", FormatInfo(single))
}

func TestParseInfo(t *testing.T) {
	info, err := ParseInfo("boardX,4,50,ch0,ch1,ch2,ch3,,1,0,1,0\r\n")
	require.NoError(t, err)
	assert.Equal(t, "boardX", info.Board)
	assert.Equal(t, 50, info.RateHz)
	assert.Equal(t, 4, info.Channels())
	assert.Equal(t, []string{"ch0", "ch1", "ch2", "ch3"}, info.Labels)
	assert.Equal(t, []bool{true, false, true, false}, info.Enabled)
	assert.Equal(t, "1010", FormatMask(info.Enabled))
}

func TestParseInfo_Invalid(t *testing.T) {
	lines := []string{
		"boardX,4",
		"boardX,x,50,a,b,c,d,,1,0,1,0",
		"boardX,4,fast,a,b,c,d,,1,0,1,0",
		"boardX,4,50,a,b,c,d,1,0,1,0",
		"boardX,4,50,a,b,c,d,e,1,0,1,0",
		"boardX,4,50,a,b,c,d,,1,0,2,0",
		"boardX,0,50,,",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			_, err := ParseInfo(line)
			assert.ErrorIs(t, err, ErrMalformedInfo)
		})
	}
}

func TestIsInfo(t *testing.T) {
	assert.True(t, IsInfo("boardX,4,50,ch0,ch1,ch2,ch3,,1,0,1,0"))
	assert.False(t, IsInfo("512,1023"))
	assert.False(t, IsInfo(""))
	assert.False(t, IsInfo(OK))
}

func TestSampleLine(t *testing.T) {
	assert.Equal(t, "512,1023,0", FormatSample([]int{512, 1023, 0}))
	assert.Equal(t, "7", FormatSample([]int{7}))
	assert.Equal(t, "", FormatSample(nil))

	values, err := ParseSample("512,1023,0\r")
	require.NoError(t, err)
	assert.Equal(t, []int{512, 1023, 0}, values)

	values, err = ParseSample("")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = ParseSample("512,,3")
	assert.ErrorIs(t, err, ErrMalformedSample)

	_, err = ParseSample("OK")
	assert.ErrorIs(t, err, ErrMalformedSample)
}

func TestAppendSample_ReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 32)
	buf = AppendSample(buf[:0], []int{1, 2})
	assert.Equal(t, "1,2", string(buf))
	buf = AppendSample(buf[:0], []int{30})
	assert.Equal(t, "30", string(buf))
}
