package buildinfo

import "testing"

func TestShort(t *testing.T) {
	v, c := Version, Commit
	defer func() { Version, Commit = v, c }()

	Version, Commit = "dev", "unknown"
	if got := Short(); got != "dev" {
		t.Fatalf("Short() = %q, want dev", got)
	}
	Commit = "abc123"
	if got := Short(); got != "abc123" {
		t.Fatalf("Short() = %q, want abc123", got)
	}
	Version = "v0.3.0"
	if got := Short(); got != "v0.3.0" {
		t.Fatalf("Short() = %q, want v0.3.0", got)
	}
	if got, want := String(), "v0.3.0 (commit abc123, built "+Date+")"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
