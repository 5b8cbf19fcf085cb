package config

import (
	"flag"
	"io"
	"slices"
	"strings"
	"testing"
	"time"
)

func loadClient(t *testing.T, args []string) (ClientConfig, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	resolve := RegisterClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return ClientConfig{}, err
	}
	return resolve()
}

func TestClientConfig(t *testing.T) {
	tests := []struct {
		env         map[string]string
		name        string
		wantErr     string
		args        []string
		wantAddr    string
		wantKey     string
		wantRoot    string
		wantTimeout time.Duration
		wantBackoff []time.Duration
	}{
		{
			name:        "defaults",
			wantAddr:    defaultServerAddr,
			wantTimeout: defaultTimeout,
			wantBackoff: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		},
		{
			name:        "flags",
			args:        []string{"-a", ":9000", "-k", "s", "-root", "data", "-timeout", "2s", "-retries", "0"},
			wantAddr:    "http://localhost:9000",
			wantKey:     "s",
			wantRoot:    "data",
			wantTimeout: 2 * time.Second,
		},
		{
			name:        "env wins",
			args:        []string{"-a", "flag:1", "-retries", "0"},
			env:         map[string]string{"ADDRESS": "https://env:2", "TIMEOUT": "300ms", "RETRIES": "1"},
			wantAddr:    "https://env:2",
			wantTimeout: 300 * time.Millisecond,
			wantBackoff: []time.Duration{time.Second},
		},
		{
			name:    "zero timeout",
			env:     map[string]string{"TIMEOUT": "0"},
			wantErr: "timeout must be > 0",
		},
		{
			name:    "invalid address",
			args:    []string{"-a", "http://%zz"},
			wantErr: "invalid server address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"ADDRESS", "KEY", "TIMEOUT", "RETRIES"} {
				t.Setenv(k, tt.env[k])
			}
			got, err := loadClient(t, tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err=%v want contains %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Address != tt.wantAddr || got.Key != tt.wantKey || got.Root != tt.wantRoot || got.Timeout != tt.wantTimeout {
				t.Fatalf("got %+v", got)
			}
			if !slices.Equal(got.Backoff, tt.wantBackoff) {
				t.Fatalf("backoff=%v want %v", got.Backoff, tt.wantBackoff)
			}
		})
	}
}
