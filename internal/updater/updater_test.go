package updater

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCurlFallbackMessage(t *testing.T) {
	msg := CurlFallbackMessage(os.ErrPermission)
	if !strings.Contains(msg, "Self-update failed") {
		t.Errorf("expected message to contain 'Self-update failed', got: %s", msg)
	}
	if !strings.Contains(msg, "curl") {
		t.Errorf("expected message to contain 'curl', got: %s", msg)
	}
	if !strings.Contains(msg, "redroll/main/install.sh") {
		t.Errorf("expected message to contain the install script, got: %s", msg)
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.0", "1.1.9", true},
		{"v1.2.0", "1.2.0", false},
		{"1.2.0", "v1.3.0", false},
		{"2.0.0", " 1.99.99 ", true},
	}
	for _, tt := range tests {
		got, err := isNewer(tt.latest, tt.current)
		if err != nil {
			t.Errorf("isNewer(%q, %q) error: %v", tt.latest, tt.current, err)
			continue
		}
		if got != tt.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}

	if _, err := isNewer("1.0.0", "garbage"); err == nil {
		t.Error("isNewer should fail on an invalid version")
	}
}

func TestUpgradeInvalidVersion(t *testing.T) {
	if _, err := Upgrade("not-a-version"); err == nil {
		t.Error("Upgrade should reject an invalid current version")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", CacheFile)
	now := time.Now()
	writeCache(path, updateCache{LastCheckEpoch: now.Unix(), LatestVersion: "9.9.9", HasUpdate: true})

	cache, ok := readCache(path, 24*time.Hour, now)
	if !ok {
		t.Fatal("expected fresh cache")
	}
	if cache.LatestVersion != "9.9.9" || !cache.HasUpdate {
		t.Errorf("cache = %+v", cache)
	}

	if _, ok := readCache(path, 24*time.Hour, now.Add(48*time.Hour)); ok {
		t.Error("cache older than the interval should be ignored")
	}
}

func TestReadCacheInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), CacheFile)
	if _, ok := readCache(path, time.Hour, time.Now()); ok {
		t.Error("missing cache should not be used")
	}
	_ = os.WriteFile(path, []byte("{"), 0644)
	if _, ok := readCache(path, time.Hour, time.Now()); ok {
		t.Error("corrupt cache should not be used")
	}
}

func TestCheckLatestWithCache_UsesCache(t *testing.T) {
	dir := t.TempDir()
	writeCache(filepath.Join(dir, CacheFile), updateCache{LastCheckEpoch: time.Now().Unix(), LatestVersion: "3.0.0", HasUpdate: true})

	latest, hasUpdate, err := CheckLatestWithCache("1.0.0", 7, dir)
	if err != nil {
		t.Fatalf("CheckLatestWithCache failed: %v", err)
	}
	if latest != "3.0.0" || !hasUpdate {
		t.Errorf("got (%q, %v), want cached (3.0.0, true)", latest, hasUpdate)
	}
}
