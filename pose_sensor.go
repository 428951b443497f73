package vertical_arm

import (
	"context"
	"fmt"
	"sync"

	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

var (
	PoseSensorModel = resource.NewModel("devrel", "verticalarm", "pose")
)

func init() {
	resource.RegisterComponent(sensor.API, PoseSensorModel,
		resource.Registration[sensor.Sensor, *PoseSensorConfig]{
			Constructor: NewPoseSensor,
		},
	)
}

// PoseSensorConfig represents the configuration for the pose sensor
type PoseSensorConfig struct {
	// Arm is the vertical arm this sensor reports on. Declared as a dependency
	// so the arm, and with it the chain, exists first.
	Arm string `json:"arm,omitempty"`

	// Chain defaults to the arm's default chain.
	Chain string `json:"chain,omitempty"`

	PoseFile string `json:"pose_file,omitempty"`
}

// Validate ensures all parts of the config are valid
func (cfg *PoseSensorConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Arm == "" && cfg.Chain == "" {
		return nil, nil, fmt.Errorf("%s: must specify arm or chain", path)
	}
	if cfg.Arm != "" {
		return []string{cfg.Arm}, nil, nil
	}
	return nil, nil, nil
}

func (cfg *PoseSensorConfig) chainName() string {
	if cfg.Chain == "" {
		return defaultChainName
	}
	return cfg.Chain
}

// poseSensor reports every segment placement of a shared chain and can pose it.
// It holds no chain reference, so the arm stays free to rebuild its chain.
// Pose changes go through the arm so its limits and host apply.
type poseSensor struct {
	resource.AlwaysRebuild

	name      resource.Name
	logger    logging.Logger
	cfg       *PoseSensorConfig
	arm       *VerticalArm
	chainName string

	mu          sync.RWMutex
	lastCommand string
	lastError   string
}

// NewPoseSensor creates a new pose sensor
func NewPoseSensor(
	ctx context.Context,
	deps resource.Dependencies,
	rawConf resource.Config,
	logger logging.Logger,
) (sensor.Sensor, error) {
	conf, err := resource.NativeConfig[*PoseSensorConfig](rawConf)
	if err != nil {
		return nil, err
	}
	return newPoseSensor(rawConf.ResourceName(), deps, conf, logger)
}

func newPoseSensor(name resource.Name, deps resource.Dependencies, conf *PoseSensorConfig, logger logging.Logger) (*poseSensor, error) {
	s := &poseSensor{
		name:        name,
		logger:      logger,
		cfg:         conf,
		chainName:   conf.chainName(),
		lastCommand: "none",
	}

	// An in-process arm is used directly.
	if conf.Arm != "" && deps != nil {
		if a, err := arm.FromDependencies(deps, conf.Arm); err == nil {
			if va, ok := a.(*VerticalArm); ok {
				s.arm = va
				s.chainName = va.chainName
			}
		}
	}

	if _, err := s.chain(); err != nil {
		return nil, fmt.Errorf("failed to attach to arm chain: %w", err)
	}

	logger.Debugf("Pose sensor attached to chain %q", s.chainName)
	return s, nil
}

// chain returns the chain to report on, resolved on every call so a rebuilt arm
// is picked up.
func (ps *poseSensor) chain() (*SafeArmChain, error) {
	if ps.arm != nil && !ps.arm.closed.Load() {
		return ps.arm.Chain(), nil
	}
	return LookupSharedChain(ps.chainName)
}

// poser returns the arm that applies pose changes to the chain.
func (ps *poseSensor) poser() (*VerticalArm, error) {
	if ps.arm != nil && !ps.arm.closed.Load() {
		return ps.arm, nil
	}
	chain, err := LookupSharedChain(ps.chainName)
	if err != nil {
		return nil, err
	}
	if a := chain.Owner(); a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("chain %q has no arm to pose it", ps.chainName)
}

func (ps *poseSensor) Name() resource.Name {
	return ps.name
}

// Readings returns the joint angles and every segment's placement
func (ps *poseSensor) Readings(ctx context.Context, extra map[string]any) (map[string]any, error) {
	chain, err := ps.chain()
	if err != nil {
		return nil, err
	}
	snapshot := chain.Snapshot()
	j1, j2 := snapshot.JointAngles()

	segments := make(map[string]any)
	for _, s := range snapshot.Segments() {
		info := placementToMap(s.Placement)
		info["kind"] = s.Kind.String()
		if j := s.JointIndex(); j > 0 {
			info["joint"] = j
		}
		if up := s.Upstream(); up != nil {
			info["upstream"] = up.Name
		}
		segments[s.Name] = info
	}

	tip := snapshot.TipPose().Point()

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	readings := map[string]any{
		"chain":            ps.chainName,
		"propagation_mode": string(snapshot.Mode()),
		"joint1_degrees":   j1,
		"joint2_degrees":   j2,
		"tip":              map[string]any{"x": tip.X, "y": tip.Y, "z": tip.Z},
		"segments":         segments,
		"last_command":     ps.lastCommand,
	}
	if ps.lastError != "" {
		readings["error"] = ps.lastError
	}
	readings["available_commands"] = []any{"set_joint_angle", "compute_pose", "reset", "save_pose", "load_pose"}

	return readings, nil
}

// DoCommand handles pose commands
func (ps *poseSensor) DoCommand(ctx context.Context, cmd map[string]any) (map[string]any, error) {
	command, ok := cmd["command"].(string)
	if !ok {
		return nil, fmt.Errorf("command must be a string")
	}

	var (
		result map[string]any
		err    error
	)
	switch command {
	case "set_joint_angle":
		result, err = ps.setJointAngle(ctx, cmd)
	case "compute_pose":
		result, err = ps.computePose(ctx, cmd)
	case "reset":
		result, err = ps.reset(ctx)
	case "save_pose":
		result, err = ps.savePose(ctx, cmd)
	case "load_pose":
		result, err = ps.loadPose(ctx, cmd)
	default:
		return nil, fmt.Errorf("unknown command: %s", command)
	}

	ps.mu.Lock()
	ps.lastCommand = command
	ps.lastError = ""
	if err != nil {
		ps.lastError = err.Error()
	}
	ps.mu.Unlock()

	return result, err
}

func (ps *poseSensor) setJointAngle(ctx context.Context, cmd map[string]any) (map[string]any, error) {
	joint, angle, err := parseJointAngleCommand(cmd)
	if err != nil {
		return nil, err
	}
	a, err := ps.poser()
	if err != nil {
		return nil, err
	}
	if err := a.SetJointAngle(ctx, joint, angle); err != nil {
		return nil, err
	}
	return placementsResult(a.Chain()), nil
}

// computePose previews the downstream placements for a joint angle without moving the arm
func (ps *poseSensor) computePose(_ context.Context, cmd map[string]any) (map[string]any, error) {
	joint, angle, err := parseJointAngleCommand(cmd)
	if err != nil {
		return nil, err
	}
	chain, err := ps.chain()
	if err != nil {
		return nil, err
	}
	moved, err := chain.ComputePose(joint, angle)
	if err != nil {
		return nil, err
	}
	placements := make(map[string]any, len(moved))
	for name, p := range moved {
		placements[name] = placementToMap(p)
	}
	return map[string]any{
		"joint":      joint,
		"angle_degs": angle,
		"placements": placements,
	}, nil
}

func (ps *poseSensor) reset(ctx context.Context) (map[string]any, error) {
	a, err := ps.poser()
	if err != nil {
		return nil, err
	}
	if err := a.setJointAngles(ctx, 0, 0); err != nil {
		return nil, err
	}
	return placementsResult(a.Chain()), nil
}

func (ps *poseSensor) poseFile(cmd map[string]any) (string, error) {
	fallback := ""
	if ps.cfg.PoseFile != "" {
		fallback = resolveModuleDataPath(ps.cfg.PoseFile)
	}
	return poseFileFromCommand(cmd, fallback)
}

func (ps *poseSensor) savePose(_ context.Context, cmd map[string]any) (map[string]any, error) {
	path, err := ps.poseFile(cmd)
	if err != nil {
		return nil, err
	}
	chain, err := ps.chain()
	if err != nil {
		return nil, err
	}
	j1, j2 := chain.JointAngles()
	if err := SavePoseToFile(path, SavedPose{Joint1Degrees: j1, Joint2Degrees: j2}); err != nil {
		return nil, err
	}
	ps.logger.Infof("Saved pose to %s", path)
	return map[string]any{"success": true, "pose_file": path}, nil
}

func (ps *poseSensor) loadPose(ctx context.Context, cmd map[string]any) (map[string]any, error) {
	path, err := ps.poseFile(cmd)
	if err != nil {
		return nil, err
	}
	pose, err := LoadPoseFromFile(path)
	if err != nil {
		return nil, err
	}
	a, err := ps.poser()
	if err != nil {
		return nil, err
	}
	if err := a.setJointAngles(ctx, pose.Joint1Degrees, pose.Joint2Degrees); err != nil {
		return nil, err
	}
	ps.logger.Infof("Loaded pose from %s", path)
	return placementsResult(a.Chain()), nil
}

func (ps *poseSensor) Close(ctx context.Context) error {
	return nil
}
