package installpath

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
)

// ErrNoInstallLocation is returned when every strategy fails to resolve a
// directory. The wrapped message aggregates per-strategy skip reasons and
// ends with remediation guidance.
var ErrNoInstallLocation = errors.New("no install location could be determined")

// Resolve picks the install directory. An explicit override wins
// unconditionally: when the strategy set contains a CargoHomeLike entry
// the override receives the fixed bin subdirectory, otherwise it is used
// verbatim. Without an override the strategies are scanned in declared
// order and the first one whose environment dependencies all resolve
// supplies the result; later strategies are never evaluated.
func Resolve(strategies []Strategy, override string, env Environ) (string, error) {
	if override != "" {
		if hasCargoHomeLike(strategies) {
			return filepath.Join(override, binSubdir), nil
		}

		return override, nil
	}

	var skipped *multierror.Error

	for _, strategy := range strategies {
		dir, err := strategy.Resolve(env)
		if err == nil {
			return dir, nil
		}

		skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", strategy, err))
	}

	if reason := skipped.ErrorOrNil(); reason != nil {
		return "", fmt.Errorf(
			"%w: %w; set $HOME or pass an explicit install directory override",
			ErrNoInstallLocation, reason)
	}

	return "", fmt.Errorf(
		"%w: no strategies declared; pass an explicit install directory override",
		ErrNoInstallLocation)
}

// hasCargoHomeLike reports whether the declared strategy set includes the
// cargo-home layout, which dictates the bin suffix for overrides too.
func hasCargoHomeLike(strategies []Strategy) bool {
	for _, strategy := range strategies {
		if _, ok := strategy.(CargoHomeLike); ok {
			return true
		}
	}

	return false
}
