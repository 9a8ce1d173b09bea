package waitlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToNearest(t *testing.T) {
	cases := []struct {
		n        int
		interval int
		want     int
	}{
		{0, 10, 0},
		{1, 10, 0},
		{9, 10, 0},
		{10, 10, 10},
		{11, 10, 10},
		{99, 10, 90},
		{150, 100, 100},
		{999, 100, 900},
		{1000, 1000, 1000},
		{2500, 1000, 2000},
		{-1, 10, -10},
		{-10, 10, -10},
		{-11, 10, -20},
		{7, 0, 7},
		{7, -5, 7},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RoundToNearest(c.n, c.interval), "RoundToNearest(%d, %d)", c.n, c.interval)
	}
}

func TestFormatCount(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 0},
		{5, 0},
		{10, 10},
		{47, 40},
		{99, 90},
		{100, 100},
		{101, 100},
		{999, 900},
		{1000, 1000},
		{1001, 1000},
		{12345, 12000},
		{-1, -10},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatCount(c.n), "FormatCount(%d)", c.n)
	}
}
