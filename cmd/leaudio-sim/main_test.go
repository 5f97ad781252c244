package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/backkem/leaudio/pkg/audio"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Options
		wantErr bool
	}{
		{"Defaults", nil, DefaultOptions(), false},
		{
			"All",
			[]string{"-devices", "1", "-context", "conversational", "-timeout", "5s", "-cache", "-disallow-once", "-v"},
			Options{Devices: 1, Context: audio.ContextConversational, Timeout: 5 * time.Second, Cache: true, DisallowOnce: true, Verbose: true},
			false,
		},
		{"TooManyDevices", []string{"-devices", "3"}, Options{}, true},
		{"UnknownContext", []string{"-context", "podcast"}, Options{}, true},
		{"BadTimeout", []string{"-timeout", "0s"}, Options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlags(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseFlags(%v) = %+v, want error", tt.args, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string
	}{
		{
			"MediaPair",
			Options{Devices: 2, Context: audio.ContextMedia, Timeout: time.Second},
			[]string{"STREAMING", "SUSPENDED", "IDLE", "DualDev_OneChanStereoSnk_48_4"},
		},
		{
			"CachedCallWithCigRecovery",
			Options{Devices: 1, Context: audio.ContextConversational, Timeout: time.Second, Cache: true, DisallowOnce: true},
			[]string{"STREAMING", "CONFIGURED_AUTONOMOUS"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := Run(tt.opts, &out); err != nil {
				t.Fatalf("Run failed: %v\n%s", err, out.String())
			}
			for _, s := range tt.contains {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output missing %q:\n%s", s, out.String())
				}
			}
		})
	}
}
