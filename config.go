package vertical_arm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

const defaultChainName = "default"

type VerticalArmConfig struct {
	// Chain names the shared chain. Arms with the same chain name share one pose.
	Chain string `json:"chain,omitempty"`

	Dimensions Dimensions `json:"dimensions,omitempty"`

	Mode string `json:"propagation_mode,omitempty"`

	JointLimits []JointLimit `json:"joint_limits_degs,omitempty"`

	PoseFile string `json:"pose_file,omitempty"`

	// Not serialized
	Logger logging.Logger `json:"-"`
	Host   Host           `json:"-"`
}

// Validate ensures all parts of the config are valid and fills in defaults
func (cfg *VerticalArmConfig) Validate(path string) ([]string, []string, error) {
	cfg.Dimensions = cfg.Dimensions.WithDefaults()
	if err := cfg.Dimensions.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	if _, err := ParsePropagationMode(cfg.Mode); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(cfg.JointLimits) == 0 {
		cfg.JointLimits = append([]JointLimit(nil), DefaultJointLimits...)
	}
	if len(cfg.JointLimits) != NumJoints {
		return nil, nil, fmt.Errorf("%s: joint_limits_degs must have %d entries, got %d", path, NumJoints, len(cfg.JointLimits))
	}
	for i, l := range cfg.JointLimits {
		if err := l.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: joint %d: %w", path, i+1, err)
		}
	}

	return nil, nil, nil
}

// ChainName returns the shared chain name, defaulting when unset.
func (cfg *VerticalArmConfig) ChainName() string {
	if cfg.Chain == "" {
		return defaultChainName
	}
	return cfg.Chain
}

// PropagationMode returns the parsed mode. Call after Validate.
func (cfg *VerticalArmConfig) PropagationMode() PropagationMode {
	mode, err := ParsePropagationMode(cfg.Mode)
	if err != nil {
		return PropagationChained
	}
	return mode
}

// Limits returns the configured joint limits, or the defaults.
func (cfg *VerticalArmConfig) Limits() []JointLimit {
	if len(cfg.JointLimits) != NumJoints {
		return DefaultJointLimits
	}
	return cfg.JointLimits
}

// SavedPose is the on-disk form of a pose.
type SavedPose struct {
	Joint1Degrees float64 `json:"joint1_degrees"`
	Joint2Degrees float64 `json:"joint2_degrees"`
}

// ResolvedPoseFile returns the absolute pose file path, or "" when none is configured.
// Relative paths are taken from VIAM_MODULE_DATA.
func (cfg *VerticalArmConfig) ResolvedPoseFile() string {
	if cfg.PoseFile == "" {
		return ""
	}
	return resolveModuleDataPath(cfg.PoseFile)
}

func moduleDataDir() string {
	dir := os.Getenv("VIAM_MODULE_DATA")
	if dir == "" {
		dir = "/tmp" // Fallback if VIAM_MODULE_DATA not set
	}
	return dir
}

func resolveModuleDataPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(moduleDataDir(), p)
}

// LoadPose loads the starting pose from the configured file.
// Returns (pose, fromFile) where fromFile indicates if loaded from file
func (cfg *VerticalArmConfig) LoadPose(logger logging.Logger) (SavedPose, bool) {
	path := cfg.ResolvedPoseFile()
	if path == "" {
		if logger != nil {
			logger.Debug("No pose file specified, starting at rest")
		}
		return SavedPose{}, false
	}

	pose, err := LoadPoseFromFile(path)
	if err != nil {
		if logger != nil {
			logger.Warnf("Failed to load pose from %s: %v, starting at rest", path, err)
		}
		return SavedPose{}, false
	}

	if logger != nil {
		logger.Infof("Loaded pose from %s: joint1=%.2f° joint2=%.2f°", path, pose.Joint1Degrees, pose.Joint2Degrees)
	}
	return pose, true
}

// LoadPoseFromFile reads and validates a pose file.
func LoadPoseFromFile(filePath string) (SavedPose, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return SavedPose{}, errors.Wrap(err, "failed to read pose file")
	}

	var pose SavedPose
	if err := json.Unmarshal(data, &pose); err != nil {
		return SavedPose{}, errors.Wrap(err, "failed to parse pose JSON")
	}

	if err := checkJointAngle(1, pose.Joint1Degrees); err != nil {
		return SavedPose{}, errors.Wrap(err, "invalid pose")
	}
	if err := checkJointAngle(2, pose.Joint2Degrees); err != nil {
		return SavedPose{}, errors.Wrap(err, "invalid pose")
	}

	return pose, nil
}

// SavePoseToFile writes a pose file, creating the parent directory if needed.
func SavePoseToFile(filePath string, pose SavedPose) error {
	data, err := json.MarshalIndent(pose, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal pose")
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create pose directory")
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write pose file")
	}

	return nil
}
