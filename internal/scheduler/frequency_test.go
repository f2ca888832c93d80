package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"10s", 10 * time.Second, true},
		{"5", 5 * time.Minute, true},
		{"30", 30 * time.Minute, true},
		{" 45s ", 45 * time.Second, true},
		{"15 min", 15 * time.Minute, true},
		{"2.5", 2 * time.Minute, true},
		{"abc", 0, false},
		{"", 0, false},
		{"s", 0, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"0s", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseFrequency(tt.in)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Fatalf("ParseFrequency(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrMalformedFrequency) {
			t.Fatalf("ParseFrequency(%q) err = %v, want ErrMalformedFrequency", tt.in, err)
		}
	}
}

func TestResolveIntervalFallback(t *testing.T) {
	if d, ok := ResolveInterval("junk", 0); ok || d != MinInterval {
		t.Fatalf("ResolveInterval(junk) = %v, %v", d, ok)
	}
	if d, ok := ResolveInterval("junk", 2*time.Minute); ok || d != 2*time.Minute {
		t.Fatalf("ResolveInterval(junk, 2m) = %v, %v", d, ok)
	}
	if d, ok := ResolveInterval("10s", 0); !ok || d != 10*time.Second {
		t.Fatalf("ResolveInterval(10s) = %v, %v", d, ok)
	}
}
