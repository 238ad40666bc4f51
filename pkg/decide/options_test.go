package decide

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindowDays(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    int
		wantErr bool
	}{
		{name: "absent", opts: nil, want: DefaultWindowDays},
		{name: "nil value", opts: Options{OptionWindowDays: nil}, want: DefaultWindowDays},
		{name: "other keys ignored", opts: Options{"other": "x"}, want: DefaultWindowDays},
		{name: "int", opts: Options{OptionWindowDays: 5}, want: 5},
		{name: "int64", opts: Options{OptionWindowDays: int64(30)}, want: 30},
		{name: "uint8", opts: Options{OptionWindowDays: uint8(3)}, want: 3},
		{name: "integral float", opts: Options{OptionWindowDays: 14.0}, want: 14},
		{name: "numeric string", opts: Options{OptionWindowDays: "10"}, want: 10},
		{name: "padded string", opts: Options{OptionWindowDays: " 08 "}, want: 8},
		{name: "json number", opts: Options{OptionWindowDays: json.Number("3")}, want: 3},
		{name: "integral float string", opts: Options{OptionWindowDays: "14.0"}, want: 14},
		{name: "integral float json number", opts: Options{OptionWindowDays: json.Number("7.0")}, want: 7},
		{name: "uint", opts: Options{OptionWindowDays: uint(9)}, want: 9},
		{name: "float32", opts: Options{OptionWindowDays: float32(4)}, want: 4},
		{name: "non-numeric string", opts: Options{OptionWindowDays: "two"}, wantErr: true},
		{name: "empty string", opts: Options{OptionWindowDays: ""}, wantErr: true},
		{name: "decimal string", opts: Options{OptionWindowDays: "2.5"}, wantErr: true},
		{name: "fractional float", opts: Options{OptionWindowDays: 2.5}, wantErr: true},
		{name: "fractional json number", opts: Options{OptionWindowDays: json.Number("2.5")}, wantErr: true},
		{name: "fractional float32", opts: Options{OptionWindowDays: float32(1.5)}, wantErr: true},
		{name: "hex string", opts: Options{OptionWindowDays: "0x10"}, wantErr: true},
		{name: "infinite string", opts: Options{OptionWindowDays: "Inf"}, wantErr: true},
		{name: "huge float", opts: Options{OptionWindowDays: 1e12}, wantErr: true},
		{name: "huge int64", opts: Options{OptionWindowDays: int64(math.MaxInt32) + 1}, wantErr: true},
		{name: "false", opts: Options{OptionWindowDays: false}, wantErr: true},
		{name: "zero", opts: Options{OptionWindowDays: 0}, wantErr: true},
		{name: "negative", opts: Options{OptionWindowDays: -3}, wantErr: true},
		{name: "negative string", opts: Options{OptionWindowDays: "-1"}, wantErr: true},
		{name: "bool", opts: Options{OptionWindowDays: true}, wantErr: true},
		{name: "slice", opts: Options{OptionWindowDays: []int{1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowDays(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				var invalid *InvalidOptionError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, OptionWindowDays, invalid.Key)
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
