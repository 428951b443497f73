package vertical_arm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/motionplan/armplanning"
	"go.viam.com/rdk/operation"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
)

var VerticalArmModel = resource.NewModel("devrel", "verticalarm", "arm")

func init() {
	resource.RegisterComponent(arm.API, VerticalArmModel,
		resource.Registration[arm.Arm, *VerticalArmConfig]{
			Constructor: newVerticalArm,
		},
	)
}

// VerticalArm is a two-joint vertical arm with no hardware behind it. Poses are
// computed by the shared ArmChain and pushed to a Host after every change.
type VerticalArm struct {
	resource.AlwaysRebuild

	name      resource.Name
	logger    logging.Logger
	cfg       *VerticalArmConfig
	opMgr     *operation.SingleOperationManager
	chain     *SafeArmChain
	chainName string
	host      Host

	mu       sync.RWMutex
	moveLock sync.Mutex
	isMoving atomic.Bool
	closed   atomic.Bool
	model    referenceframe.Model
	limits   []JointLimit
}

func newVerticalArm(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (arm.Arm, error) {
	conf, err := resource.NativeConfig[*VerticalArmConfig](rawConf)
	if err != nil {
		return nil, err
	}
	conf.Logger = logger
	return NewVerticalArm(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewVerticalArm(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *VerticalArmConfig, logger logging.Logger) (*VerticalArm, error) {
	if conf.Logger == nil {
		conf.Logger = logger
	}

	if _, _, err := conf.Validate(name.String()); err != nil {
		return nil, err
	}

	chainName := conf.ChainName()
	chain, err := GetSharedChain(chainName, conf.Dimensions, conf.PropagationMode())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize arm chain: %w", err)
	}

	model, err := NewKinematicsModel(name.ShortName(), conf.Dimensions, conf.Limits())
	if err != nil {
		ReleaseSharedChain(chainName) // Clean up on error
		return nil, fmt.Errorf("failed to create kinematic model: %w", err)
	}

	host := conf.Host
	if host == nil {
		host = NewLoggingHost(logger)
	}

	a := &VerticalArm{
		name:      name,
		logger:    logger,
		cfg:       conf,
		opMgr:     operation.NewSingleOperationManager(),
		chain:     chain,
		chainName: chainName,
		host:      host,
		model:     model,
		limits:    conf.Limits(),
	}

	if pose, fromFile := conf.LoadPose(logger); fromFile {
		j1, _ := a.clamp(1, pose.Joint1Degrees)
		j2, _ := a.clamp(2, pose.Joint2Degrees)
		if err := chain.SetJointAngles(j1, j2); err != nil {
			logger.Warnf("Ignoring saved pose: %v", err)
		}
	}
	chain.setOwner(a)

	notifyHost(ctx, a.host, logger, chain.Placements())
	fitHostView(ctx, a.host, logger)

	dims := chain.Dimensions()
	logger.Infof("Vertical arm initialized on chain %q (%s mode), link heights %.1f/%.1f/%.1f mm",
		chainName, chain.Mode(), dims.Link1Height, dims.Link2Height, dims.Link3Height)
	return a, nil
}

func (a *VerticalArm) Name() resource.Name {
	return a.name
}

// Chain returns the shared chain this arm poses.
func (a *VerticalArm) Chain() *SafeArmChain {
	return a.chain
}

// clamp limits angleDegrees to joint's configured range, logging when it has to.
// Within a half-turn range, angles are first wrapped onto (-180, 180].
func (a *VerticalArm) clamp(joint int, angleDegrees float64) (float64, bool) {
	limit := a.limits[joint-1]
	if limit.MinDegrees >= -180 && limit.MaxDegrees <= 180 {
		angleDegrees = wrapDegrees(angleDegrees)
	}
	clamped, changed := limit.Clamp(angleDegrees)
	if changed {
		a.logger.Warnf("Joint %d angle %.2f° outside limits [%.2f°, %.2f°], clamping to %.2f°",
			joint, angleDegrees, limit.MinDegrees, limit.MaxDegrees, clamped)
	}
	return clamped, changed
}

// SetJointAngle rotates one joint to an absolute angle in degrees and recomputes
// the arm. joint must be 1 or 2.
func (a *VerticalArm) SetJointAngle(ctx context.Context, joint int, angleDegrees float64) error {
	if joint < 1 || joint > NumJoints {
		return errors.Wrapf(ErrInvalidJointIndex, "joint %d", joint)
	}
	if err := checkJointAngle(joint, angleDegrees); err != nil {
		return err
	}
	angleDegrees, _ = a.clamp(joint, angleDegrees)

	ctx, done := a.opMgr.New(ctx)
	defer done()

	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	a.isMoving.Store(true)
	defer a.isMoving.Store(false)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.chain.SetJointAngle(joint, angleDegrees); err != nil {
		return err
	}
	a.logger.Debugf("Joint %d set to %.2f°", joint, angleDegrees)

	notifyHost(ctx, a.host, a.logger, a.chain.Placements())
	return nil
}

func (a *VerticalArm) setJointAngles(ctx context.Context, joint1Degrees, joint2Degrees float64) error {
	if err := checkJointAngle(1, joint1Degrees); err != nil {
		return err
	}
	if err := checkJointAngle(2, joint2Degrees); err != nil {
		return err
	}
	joint1Degrees, _ = a.clamp(1, joint1Degrees)
	joint2Degrees, _ = a.clamp(2, joint2Degrees)

	ctx, done := a.opMgr.New(ctx)
	defer done()

	a.moveLock.Lock()
	defer a.moveLock.Unlock()

	a.isMoving.Store(true)
	defer a.isMoving.Store(false)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.chain.SetJointAngles(joint1Degrees, joint2Degrees); err != nil {
		return err
	}
	notifyHost(ctx, a.host, a.logger, a.chain.Placements())
	return nil
}

func (a *VerticalArm) EndPosition(ctx context.Context, extra map[string]interface{}) (spatialmath.Pose, error) {
	return a.chain.TipPose(), nil
}

func (a *VerticalArm) MoveToPosition(ctx context.Context, pose spatialmath.Pose, extra map[string]interface{}) error {
	if err := armplanning.MoveArm(ctx, a.logger, a, pose); err != nil {
		return err
	}
	return nil
}

func (a *VerticalArm) MoveToJointPositions(ctx context.Context, positions []referenceframe.Input, extra map[string]interface{}) error {
	degrees, err := InputsToDegrees(positions)
	if err != nil {
		return fmt.Errorf("invalid joint positions: %w", err)
	}
	return a.setJointAngles(ctx, degrees[0], degrees[1])
}

func (a *VerticalArm) MoveThroughJointPositions(ctx context.Context, positions [][]referenceframe.Input, options *arm.MoveOptions, extra map[string]interface{}) error {
	for _, jointPositions := range positions {
		if err := a.MoveToJointPositions(ctx, jointPositions, extra); err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (a *VerticalArm) JointPositions(ctx context.Context, extra map[string]interface{}) ([]referenceframe.Input, error) {
	j1, j2 := a.chain.JointAngles()
	return DegreesToInputs(j1, j2), nil
}

func (a *VerticalArm) Stop(ctx context.Context, extra map[string]interface{}) error {
	a.opMgr.CancelRunning(ctx)
	a.isMoving.Store(false)
	return nil
}

func (a *VerticalArm) Kinematics(ctx context.Context) (referenceframe.Model, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model, nil
}

func (a *VerticalArm) CurrentInputs(ctx context.Context) ([]referenceframe.Input, error) {
	return a.JointPositions(ctx, nil)
}

func (a *VerticalArm) GoToInputs(ctx context.Context, inputSteps ...[]referenceframe.Input) error {
	return a.MoveThroughJointPositions(ctx, inputSteps, nil, nil)
}

func (a *VerticalArm) IsMoving(ctx context.Context) (bool, error) {
	return a.isMoving.Load(), nil
}

func (a *VerticalArm) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return a.chain.Snapshot().Geometries()
}

// Get3DModels returns no meshes; the arm is drawn from its geometries.
func (a *VerticalArm) Get3DModels(ctx context.Context, extra map[string]interface{}) (map[string]*commonpb.Mesh, error) {
	return map[string]*commonpb.Mesh{}, nil
}

func (a *VerticalArm) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	switch cmd["command"] {
	case "set_joint_angle":
		joint, angle, err := parseJointAngleCommand(cmd)
		if err != nil {
			return nil, err
		}
		if err := a.SetJointAngle(ctx, joint, angle); err != nil {
			return nil, err
		}
		return placementsResult(a.chain), nil

	case "get_placements":
		return placementsResult(a.chain), nil

	case "save_pose":
		path, err := poseFileFromCommand(cmd, a.cfg.ResolvedPoseFile())
		if err != nil {
			return nil, err
		}
		j1, j2 := a.chain.JointAngles()
		if err := SavePoseToFile(path, SavedPose{Joint1Degrees: j1, Joint2Degrees: j2}); err != nil {
			return nil, err
		}
		a.logger.Infof("Saved pose to %s", path)
		return map[string]interface{}{"success": true, "pose_file": path}, nil

	case "reset":
		if err := a.setJointAngles(ctx, 0, 0); err != nil {
			return nil, err
		}
		return placementsResult(a.chain), nil

	case "chain_status":
		refCount, hasChain, summary := GetSharedChainStatus(a.chainName)
		return map[string]interface{}{
			"chain":     a.chainName,
			"ref_count": refCount,
			"has_chain": hasChain,
			"summary":   summary,
		}, nil

	default:
		return nil, fmt.Errorf("unknown command: %v", cmd["command"])
	}
}

func (a *VerticalArm) Close(ctx context.Context) error {
	if a.closed.Swap(true) {
		return nil
	}
	a.logger.Info("Closing vertical arm")

	a.opMgr.CancelRunning(ctx)

	// Release the shared chain
	a.chain.clearOwner(a)
	ReleaseSharedChain(a.chainName)

	return nil
}

// parseJointAngleCommand reads "joint" and "angle_degs" from a DoCommand payload.
// JSON numbers arrive as float64.
func parseJointAngleCommand(cmd map[string]interface{}) (int, float64, error) {
	jointVal, ok := cmd["joint"].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("set_joint_angle requires numeric 'joint' parameter")
	}
	angle, ok := cmd["angle_degs"].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("set_joint_angle requires numeric 'angle_degs' parameter")
	}
	joint := int(jointVal)
	if float64(joint) != jointVal {
		return 0, 0, errors.Wrapf(ErrInvalidJointIndex, "joint %v", jointVal)
	}
	return joint, angle, nil
}

func poseFileFromCommand(cmd map[string]interface{}, fallback string) (string, error) {
	if p, ok := cmd["pose_file"].(string); ok && p != "" {
		return resolveModuleDataPath(p), nil
	}
	if fallback == "" {
		return "", fmt.Errorf("no pose_file configured or given")
	}
	return fallback, nil
}

func placementsResult(chain *SafeArmChain) map[string]interface{} {
	j1, j2 := chain.JointAngles()
	placements := make(map[string]interface{})
	for name, p := range chain.Placements() {
		placements[name] = placementToMap(p)
	}
	return map[string]interface{}{
		"joint1_degrees": j1,
		"joint2_degrees": j2,
		"placements":     placements,
	}
}
