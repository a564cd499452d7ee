package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDBFileSize(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		size int
		want string
	}{
		{"bytes", 512, "512 B"},
		{"kilobytes", 2048, "2.0 KB"},
		{"megabytes", 3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".db")
			if err := os.WriteFile(path, make([]byte, tt.size), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := dbFileSize(path)
			if err != nil {
				t.Fatalf("dbFileSize failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("dbFileSize(%d bytes) = %q, want %q", tt.size, got, tt.want)
			}
		})
	}
}

func TestDBFileSizeMissingFile(t *testing.T) {
	if _, err := dbFileSize(filepath.Join(t.TempDir(), "nope.db")); err == nil {
		t.Error("expected error for missing file")
	}
}
