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

// Package valuerange maps between the 16-bit integer pixel domain and the
// numeric domain a model expects for its inputs and outputs.
package valuerange

import (
	"fmt"
	"strconv"
	"strings"
)

// maxPixelValue is the largest representable 16-bit pixel intensity.
const maxPixelValue = 65535

// ValueRange describes a model's expected numeric domain: either
// [0, max] (asymmetric) or [-max, max] centered on zero (symmetric).
// The zero value is an asymmetric range with bound 0 and is not useful;
// construct ranges with Symmetric, Asymmetric or Parse.
type ValueRange struct {
	symmetric   bool
	maxAbsValue float32
}

// Symmetric returns a range spanning [-maxAbsValue, maxAbsValue].
func Symmetric(maxAbsValue float32) ValueRange {
	return ValueRange{symmetric: true, maxAbsValue: maxAbsValue}
}

// Asymmetric returns a range spanning [0, maxAbsValue].
func Asymmetric(maxAbsValue float32) ValueRange {
	return ValueRange{symmetric: false, maxAbsValue: maxAbsValue}
}

// IsSymmetric reports whether the range is centered on zero.
func (r ValueRange) IsSymmetric() bool { return r.symmetric }

// MaxAbsValue returns the range bound.
func (r ValueRange) MaxAbsValue() float32 { return r.maxAbsValue }

// PixelValueToModel maps a 16-bit pixel intensity into the model domain.
func (r ValueRange) PixelValueToModel(pixel uint16) float32 {
	v := float32(pixel) / maxPixelValue * r.maxAbsValue
	if r.symmetric {
		return v*2 - r.maxAbsValue
	}
	return v
}

// NormalizeModelValue maps a model-domain value back into [0, 1].
func (r ValueRange) NormalizeModelValue(v float32) float32 {
	if r.symmetric {
		v = (v + r.maxAbsValue) / 2
	}
	return v / r.maxAbsValue
}

// String renders the range in the textual form accepted by Parse.
func (r ValueRange) String() string {
	if r.symmetric {
		return fmt.Sprintf("+-%g", r.maxAbsValue)
	}
	return fmt.Sprintf("%g", r.maxAbsValue)
}

// Parse reads a textual value range specification. A leading "+-" denotes a
// symmetric range with the remainder as the bound; otherwise the whole string
// is the bound of an asymmetric range. The bound must be a non-negative
// float.
func Parse(s string) (ValueRange, error) {
	symmetric := false
	bound := s
	if rest, ok := strings.CutPrefix(s, "+-"); ok {
		symmetric = true
		bound = rest
	}
	max64, err := strconv.ParseFloat(bound, 32)
	if err != nil {
		return ValueRange{}, fmt.Errorf("parsing value range %q: %w", s, err)
	}
	if max64 < 0 {
		return ValueRange{}, fmt.Errorf("parsing value range %q: bound must be non-negative", s)
	}
	if symmetric {
		return Symmetric(float32(max64)), nil
	}
	return Asymmetric(float32(max64)), nil
}
