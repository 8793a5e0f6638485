/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Ratio is a percentage rounded to two decimals and printed with at least
// one decimal (50.0, 66.67). A zero denominator yields an undefined Ratio,
// rendered as "N/A" and serialized as null.
type Ratio struct {
	Value   float64
	Defined bool
}

const undefinedRatio = "N/A"

// Percent returns num/den*100 rounded half-up to two decimals.
func Percent(num, den int) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: Round2(float64(num) / float64(den) * 100), Defined: true}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (r Ratio) String() string {
	if !r.Defined {
		return undefinedRatio
	}
	s := FormatNumber(r.Value)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v, Defined: true}
	return nil
}

// ParseRatio is the inverse of Ratio.String.
func ParseRatio(s string) (Ratio, error) {
	if s == undefinedRatio {
		return Ratio{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Ratio{}, err
	}
	return Ratio{Value: v, Defined: true}, nil
}

// FormatNumber prints v without trailing zeros: 3, 0.5, 66.67.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
