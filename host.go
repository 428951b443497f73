package vertical_arm

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// Host is whatever displays the arm: a CAD document, a viewer, a terminal.
// Recompute is called after every pose change with the full set of placements.
type Host interface {
	Recompute(ctx context.Context, placements map[string]Placement) error
	FitView(ctx context.Context) error
}

// LoggingHost reports recomputes to a logger. It has no viewer, so FitView
// always returns ErrHostUnavailable.
type LoggingHost struct {
	logger logging.Logger
}

func NewLoggingHost(logger logging.Logger) *LoggingHost {
	return &LoggingHost{logger: logger}
}

func (h *LoggingHost) Recompute(ctx context.Context, placements map[string]Placement) error {
	names := make([]string, 0, len(placements))
	for name := range placements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.logger.Debugf("%s: %s", name, placements[name])
	}
	return nil
}

func (h *LoggingHost) FitView(ctx context.Context) error {
	return errors.Wrap(ErrHostUnavailable, "no viewer attached")
}

// notifyHost pushes placements to host. Host failures never fail the pose request.
func notifyHost(ctx context.Context, host Host, logger logging.Logger, placements map[string]Placement) {
	if host == nil {
		return
	}
	if err := host.Recompute(ctx, placements); err != nil {
		logHostError(logger, "recompute", err)
	}
}

// fitHostView asks the host to frame the whole arm.
func fitHostView(ctx context.Context, host Host, logger logging.Logger) {
	if host == nil {
		return
	}
	if err := host.FitView(ctx); err != nil {
		logHostError(logger, "fit view", err)
	}
}

func logHostError(logger logging.Logger, op string, err error) {
	if errors.Is(err, ErrHostUnavailable) {
		logger.Infof("Running in console mode, %s skipped: %v", op, err)
		return
	}
	logger.Warnf("host %s failed: %v", op, err)
}
