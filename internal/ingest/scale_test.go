package ingest

import (
	"testing"

	"main/internal/schema"
)

func TestParseScaled(t *testing.T) {
	for _, tc := range []struct {
		in    string
		scale int32
		want  int64
		err   bool
	}{
		{in: "60010", scale: 0, want: 60010},
		{in: "60010.5", scale: 1, want: 600105},
		{in: "60010.5", scale: 0, want: 60010},
		{in: "0.001", scale: 8, want: 100000},
		{in: "1.23456789", scale: 4, want: 12345},
		{in: "-2.5", scale: 2, want: -250},
		{in: "+3", scale: 1, want: 30},
		{in: ".5", scale: 1, want: 5},
		{in: "7.", scale: 2, want: 700},
		{in: "", scale: 0, err: true},
		{in: "abc", scale: 0, err: true},
		{in: "1.2.3", scale: 2, err: true},
		{in: "9223372036854775807000", scale: 0, err: true},
	} {
		got, err := ParseScaled(tc.in, schema.Scale(tc.scale))
		if tc.err {
			if err == nil {
				t.Errorf("ParseScaled(%q, %d): expected error, got %d", tc.in, tc.scale, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseScaled(%q, %d): %v", tc.in, tc.scale, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseScaled(%q, %d) = %d, want %d", tc.in, tc.scale, got, tc.want)
		}
	}
}
