package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/piza/prejst/internal/errors"
)

// CheckCompatibility compares the running tool version against the version a
// project requires. A leading "~" on required is ignored. It returns a
// non-recoverable config error only when own is strictly older than required;
// versions that fail to parse never block.
func CheckCompatibility(own, required string) error {
	target := strings.TrimPrefix(strings.TrimSpace(required), "~")

	ownVer, err := semver.StrictNewVersion(strings.TrimPrefix(own, "v"))
	if err != nil {
		return nil
	}
	targetVer, err := semver.StrictNewVersion(strings.TrimPrefix(target, "v"))
	if err != nil {
		return nil
	}

	if ownVer.LessThan(targetVer) {
		return errors.IncompatibleVersionError(ownVer.String(), targetVer.String())
	}

	return nil
}
