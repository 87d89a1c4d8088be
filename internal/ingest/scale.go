package ingest

import (
	"fmt"
	"strings"

	"main/internal/schema"
)

// ParseScaled converts a decimal string into a scaled integer, truncating
// digits beyond the scale. Exchange payloads carry decimal strings; the
// engine works in scaled integers everywhere past this boundary.
func ParseScaled(s string, scale schema.Scale) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty decimal")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}

	// pad or truncate the fraction to the scale
	want := int(scale)
	if len(fracPart) > want {
		fracPart = fracPart[:want]
	}
	for len(fracPart) < want {
		fracPart += "0"
	}

	var v int64
	for _, digits := range [2]string{intPart, fracPart} {
		for _, c := range digits {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("invalid decimal %q", s)
			}
			d := int64(c - '0')
			if v > (maxInt64-d)/10 {
				return 0, fmt.Errorf("decimal overflow %q", s)
			}
			v = v*10 + d
		}
	}
	if neg {
		v = -v
	}
	return v, nil
}

const maxInt64 = int64(^uint64(0) >> 1)
