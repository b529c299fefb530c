package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

const (
	repoSlug         = "CaptShanks/redroll"
	installScriptURL = "https://raw.githubusercontent.com/CaptShanks/redroll/main/install.sh"

	// CacheFile is the name of the update check cache inside the redroll directory.
	CacheFile = "update-check"
)

// CheckLatest fetches the latest release from GitHub and compares with currentVersion.
// Returns (latestVersion, hasUpdate, err). Never blocks or fails the main command on errors.
func CheckLatest(currentVersion string) (latestVersion string, hasUpdate bool, err error) {
	latest, found, err := selfupdate.DetectLatest(repoSlug)
	if err != nil || !found {
		return "", false, err
	}
	latestVersion = strings.TrimPrefix(latest.Version.String(), "v")
	hasUpdate, err = isNewer(latestVersion, currentVersion)
	if err != nil {
		return latestVersion, false, err
	}
	return latestVersion, hasUpdate, nil
}

// isNewer reports whether latest is a higher semver than current.
func isNewer(latest, current string) (bool, error) {
	latestSemver, err := semver.Parse(normalizeVersion(latest))
	if err != nil {
		return false, err
	}
	currentSemver, err := semver.Parse(normalizeVersion(current))
	if err != nil {
		return false, err
	}
	return latestSemver.GT(currentSemver), nil
}

// Upgrade replaces the current binary with the latest release.
// On success returns the new version.
func Upgrade(currentVersion string) (newVersion string, err error) {
	v, err := semver.Parse(normalizeVersion(currentVersion))
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", currentVersion, err)
	}

	latest, err := selfupdate.UpdateSelf(v, repoSlug)
	if err != nil {
		return "", err
	}
	return latest.Version.String(), nil
}

// CurlFallbackMessage returns the message to display when self-update fails.
func CurlFallbackMessage(reason error) string {
	return fmt.Sprintf(`Self-update failed: %v
To upgrade manually, run:
  curl -sSfL %s | sh`, reason, installScriptURL)
}

func normalizeVersion(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "v")
}

// updateCache holds cached update check results.
type updateCache struct {
	LastCheckEpoch int64  `json:"last_check_epoch"`
	LatestVersion  string `json:"latest_version,omitempty"`
	HasUpdate      bool   `json:"has_update"`
}

// readCache returns the cached result if it is younger than interval.
func readCache(path string, interval time.Duration, now time.Time) (updateCache, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return updateCache{}, false
	}
	var cache updateCache
	if json.Unmarshal(data, &cache) != nil {
		return updateCache{}, false
	}
	if now.Sub(time.Unix(cache.LastCheckEpoch, 0)) >= interval {
		return updateCache{}, false
	}
	return cache, true
}

// writeCache stores a check result; failures are ignored.
func writeCache(path string, cache updateCache) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	if data, err := json.Marshal(cache); err == nil {
		_ = os.WriteFile(path, data, 0644)
	}
}

// CheckLatestWithCache checks for updates, but only if the cache interval has elapsed.
// intervalDays is the number of days between checks (default 7); the cache lives in dir.
func CheckLatestWithCache(currentVersion string, intervalDays int, dir string) (latestVersion string, hasUpdate bool, err error) {
	if intervalDays <= 0 {
		intervalDays = 7
	}
	interval := time.Duration(intervalDays) * 24 * time.Hour
	path := filepath.Join(dir, CacheFile)

	if cache, ok := readCache(path, interval, time.Now()); ok {
		return cache.LatestVersion, cache.HasUpdate, nil
	}

	latest, hasUpdate, err := CheckLatest(currentVersion)
	if err != nil {
		return "", false, err
	}

	writeCache(path, updateCache{
		LastCheckEpoch: time.Now().Unix(),
		LatestVersion:  latest,
		HasUpdate:      hasUpdate,
	})
	return latest, hasUpdate, nil
}
