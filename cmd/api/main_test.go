package main

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestLimiterFor(t *testing.T) {
	tests := []struct {
		name      string
		rps       float64
		wantNil   bool
		wantLimit rate.Limit
		wantBurst int
	}{
		{name: "disabled", rps: 0, wantNil: true},
		{name: "negative", rps: -1, wantNil: true},
		{name: "fractional", rps: 0.5, wantLimit: 0.5, wantBurst: 1},
		{name: "whole", rps: 3, wantLimit: 3, wantBurst: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := limiterFor(tc.rps)
			if tc.wantNil {
				if l != nil {
					t.Fatalf("limiterFor(%v) = %v, want nil", tc.rps, l)
				}
				return
			}
			if l == nil {
				t.Fatalf("limiterFor(%v) = nil", tc.rps)
			}
			if l.Limit() != tc.wantLimit || l.Burst() != tc.wantBurst {
				t.Fatalf("limiterFor(%v) = limit %v burst %d, want %v/%d", tc.rps, l.Limit(), l.Burst(), tc.wantLimit, tc.wantBurst)
			}
		})
	}
}
