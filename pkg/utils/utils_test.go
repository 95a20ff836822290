package utils

import (
	"testing"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty slice", []string{}, ""},
		{"all empty", []string{"", ""}, ""},
		{"interval fallback", []string{"", "1h"}, "1h"},
		{"explicit wins", []string{"1d", "1h"}, "1d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoalesceString(tt.in...); got != tt.want {
				t.Errorf("CoalesceString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultInt(t *testing.T) {
	tests := []struct {
		v, defaultVal, want int
	}{
		{0, 30, 30},
		{-5, 30, 30},
		{1, 30, 1},
		{200, 30, 200},
	}
	for _, tt := range tests {
		if got := DefaultInt(tt.v, tt.defaultVal); got != tt.want {
			t.Errorf("DefaultInt(%d, %d) = %d, want %d", tt.v, tt.defaultVal, got, tt.want)
		}
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		v, want int
	}{
		{0, 1},
		{1, 1},
		{250, 250},
		{501, 500},
	}
	for _, tt := range tests {
		if got := ClampInt(tt.v, 1, 500); got != tt.want {
			t.Errorf("ClampInt(%d, 1, 500) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
