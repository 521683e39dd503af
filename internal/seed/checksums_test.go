package seed

import (
	"errors"
	"strings"
	"testing"
)

func TestParseChecksums(t *testing.T) {
	digestA := strings.Repeat("a", 64)
	digestB := strings.Repeat("B", 64)

	blob := []byte("# generated by sha256sum\n" +
		"\n" +
		digestA + "  species.parquet\n" +
		digestB + " *images.tar.gz\n" +
		"not-a-digest  broken.bin\n" +
		strings.Repeat("c", 63) + "  short.bin\n" +
		"   " + digestA + "  spaced name.csv   \n")

	got := ParseChecksums(blob)

	want := map[string]string{
		"species.parquet": digestA,
		"images.tar.gz":   strings.ToLower(digestB),
		"spaced name.csv": digestA,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for name, digest := range want {
		if got[name] != digest {
			t.Errorf("%s: expected %s, got %s", name, digest, got[name])
		}
	}
}

func TestParseChecksums_Empty(t *testing.T) {
	if got := ParseChecksums(nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestLatestVersion(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		want    string
		wantErr bool
	}{
		{
			name: "picks newest date",
			keys: []string{"seed/2024-12-31/a.bin", "seed/2025-03-01/a.bin", "seed/2025-01-15/b.bin"},
			want: "2025-03-01",
		},
		{
			name: "ignores non-date folders",
			keys: []string{"seed/latest/a.bin", "seed/2025-01-01/", "seed/readme.txt", "seed/2025-1-2/x"},
			want: "2025-01-01",
		},
		{
			name: "ignores keys outside prefix",
			keys: []string{"other/2030-01-01/a.bin", "seed/2025-01-01/a.bin"},
			want: "2025-01-01",
		},
		{
			name:    "no versions",
			keys:    []string{"seed/notes/a.txt"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LatestVersion(tt.keys, "seed/")
			if tt.wantErr {
				if !errors.Is(err, ErrNoVersions) {
					t.Errorf("expected ErrNoVersions, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LatestVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
