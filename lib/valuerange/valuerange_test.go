// Copyright 2026 The NeuraTable Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package valuerange

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    ValueRange
		wantErr bool
	}{
		{input: "+-10", want: Symmetric(10)},
		{input: "+-123", want: Symmetric(123)},
		{input: "10", want: Asymmetric(10)},
		{input: "1000.00", want: Asymmetric(1000)},
		{input: "+-1.5", want: Symmetric(1.5)},
		{input: "abc", wantErr: true},
		{input: "+-abc", wantErr: true},
		{input: "", wantErr: true},
		{input: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPixelValueToModel(t *testing.T) {
	asym := Asymmetric(1)
	assert.InDelta(t, 0.0, asym.PixelValueToModel(0), 1e-6)
	assert.InDelta(t, 1.0, asym.PixelValueToModel(65535), 1e-6)

	sym := Symmetric(2)
	assert.InDelta(t, -2.0, sym.PixelValueToModel(0), 1e-6)
	assert.InDelta(t, 2.0, sym.PixelValueToModel(65535), 1e-6)
	assert.InDelta(t, 0.0, sym.PixelValueToModel(32768), 1e-3)
}

// TestRoundTrip verifies that normalizing a converted pixel always recovers
// pixel/65535, for a spread of pixel values across symmetric and asymmetric
// ranges with different bounds.
func TestRoundTrip(t *testing.T) {
	ranges := []ValueRange{
		Asymmetric(1),
		Asymmetric(255),
		Asymmetric(1000),
		Symmetric(1),
		Symmetric(10),
		Symmetric(123),
	}
	pixels := []uint16{0, 1, 17, 255, 32767, 32768, 60000, 65534, 65535}

	for _, r := range ranges {
		for _, p := range pixels {
			got := r.NormalizeModelValue(r.PixelValueToModel(p))
			want := float32(p) / 65535
			if math.Abs(float64(got-want)) > 1e-5 {
				t.Errorf("range %v pixel %d: round trip = %v, want %v", r, p, got, want)
			}
		}
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "+-10", Symmetric(10).String())
	assert.Equal(t, "1", Asymmetric(1).String())
}
