package util

import (
	"context"
	"testing"
)

func TestIsNumericHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"192.168.1.100", true},
		{"::1", true},
		{"localhost", false},
		{"chat.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsNumericHost(tt.host); got != tt.want {
			t.Errorf("IsNumericHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestResolveHost_Numeric(t *testing.T) {
	for _, noDNS := range []bool{false, true} {
		got, err := ResolveHost(context.Background(), "10.0.0.7", noDNS)
		if err != nil {
			t.Fatalf("noDNS=%v: %v", noDNS, err)
		}
		if got != "10.0.0.7" {
			t.Errorf("noDNS=%v: got %q", noDNS, got)
		}
	}
}

func TestResolveHost_NoDNS(t *testing.T) {
	_, err := ResolveHost(context.Background(), "chat.example.com", true)
	if err == nil {
		t.Error("expected error for hostname with noDNS")
	}
}

func TestResolveHost_Localhost(t *testing.T) {
	got, err := ResolveHost(context.Background(), "localhost", false)
	if err != nil {
		t.Skipf("localhost does not resolve here: %v", err)
	}
	if !IsNumericHost(got) {
		t.Errorf("resolved %q is not numeric", got)
	}
}

func TestFormatAddr(t *testing.T) {
	if got := FormatAddr("1.2.3.4", 5000); got != "1.2.3.4:5000" {
		t.Errorf("got %q, want %q", got, "1.2.3.4:5000")
	}
	if got := FormatAddr("::1", 5000); got != "[::1]:5000" {
		t.Errorf("got %q, want %q", got, "[::1]:5000")
	}
}
