package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
)

func TestOptionsDataDirFallback(t *testing.T) {
	tests := []struct {
		name     string
		dataDir  string
		expected string
	}{
		{
			name:     "empty data dir uses default",
			dataDir:  "",
			expected: "", // Will be set to DefaultDataDir() in the function
		},
		{
			name:     "provided data dir is preserved",
			dataDir:  "/custom/data",
			expected: "/custom/data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{
				DataDir:  tt.dataDir,
				HTTPAddr: ":8080",
				Fsync:    pebblestore.FsyncModeAlways,
				Config:   cfgpkg.Default(),
			}

			if opts.DataDir == "" {
				opts.DataDir = cfgpkg.DefaultDataDir()
			}

			if tt.expected == "" {
				if opts.DataDir == "" {
					t.Error("Expected DataDir to be set after fallback")
				}
			} else if opts.DataDir != tt.expected {
				t.Errorf("Expected DataDir %s, got %s", tt.expected, opts.DataDir)
			}
		})
	}
}

func TestGetenvDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		expected string
	}{
		{
			name:     "environment variable set",
			key:      "REALTIME_TEST_VAR",
			def:      "default",
			envValue: "env_value",
			expected: "env_value",
		},
		{
			name:     "environment variable not set",
			key:      "REALTIME_TEST_VAR_NOT_SET",
			def:      "default",
			envValue: "",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				_ = os.Setenv(tt.key, tt.envValue)
			} else {
				_ = os.Unsetenv(tt.key)
			}
			t.Cleanup(func() {
				_ = os.Unsetenv(tt.key)
			})

			result := getenvDefault(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("getenvDefault(%s, %s) = %s, expected %s", tt.key, tt.def, result, tt.expected)
			}
		})
	}
}

func TestDataDirStoreSubdirectory(t *testing.T) {
	baseDir := "/tmp/realtime"
	storeDir := filepath.Join(baseDir, "store")
	if storeDir != "/tmp/realtime/store" {
		t.Errorf("unexpected store dir %s", storeDir)
	}
}

// TestRunIntegration verifies Run starts and shuts down cleanly. Minimal
// since Run binds a real listener.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	opts := Options{
		DataDir:  t.TempDir(),
		HTTPAddr: "127.0.0.1:0",
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfgpkg.Default(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Run(ctx, opts)
	if err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		t.Errorf("Expected context cancellation error, got %v", err)
	}
}
