package vertical_arm

import "github.com/pkg/errors"

var (
	// ErrInvalidJointIndex is returned when a pose request names a joint other than 1 or 2.
	ErrInvalidJointIndex = errors.New("invalid joint index, must be 1 or 2")

	// ErrInvalidJointAngle is returned for NaN or infinite joint angles.
	ErrInvalidJointAngle = errors.New("joint angle must be finite")

	// ErrHostUnavailable is returned by a Host that has no viewer or document to update.
	// It is never fatal: callers log it and continue.
	ErrHostUnavailable = errors.New("host unavailable")
)
