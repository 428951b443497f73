package vertical_arm

import (
	"sync"

	"go.viam.com/rdk/spatialmath"
)

// SafeArmChain wraps an ArmChain with thread-safe access. Pose requests are
// serialised: one completes before the next is accepted.
type SafeArmChain struct {
	chain *ArmChain
	mu    sync.RWMutex

	// owner is the arm whose limits and host apply to writes made by pose sensors.
	owner *VerticalArm
}

func NewSafeArmChain(chain *ArmChain) *SafeArmChain {
	return &SafeArmChain{chain: chain}
}

func (s *SafeArmChain) SetJointAngle(joint int, angleDegrees float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain.SetJointAngle(joint, angleDegrees)
}

func (s *SafeArmChain) SetJointAngles(joint1Degrees, joint2Degrees float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain.SetJointAngles(joint1Degrees, joint2Degrees)
}

func (s *SafeArmChain) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain.Reset()
}

func (s *SafeArmChain) JointAngles() (float64, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.JointAngles()
}

func (s *SafeArmChain) Placements() map[string]Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.Placements()
}

func (s *SafeArmChain) ComputePose(joint int, angleDegrees float64) (map[string]Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.ComputePose(joint, angleDegrees)
}

func (s *SafeArmChain) TipPose() spatialmath.Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.TipPose()
}

// Snapshot returns a copy of the chain that is safe to read without locking.
func (s *SafeArmChain) Snapshot() *ArmChain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.Clone()
}

func (s *SafeArmChain) Dimensions() Dimensions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.Dimensions()
}

func (s *SafeArmChain) Mode() PropagationMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.Mode()
}

// Owner returns the arm that most recently took ownership of the chain, or nil.
func (s *SafeArmChain) Owner() *VerticalArm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *SafeArmChain) setOwner(a *VerticalArm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = a
}

// clearOwner drops a as owner. A newer owner is left in place.
func (s *SafeArmChain) clearOwner(a *VerticalArm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == a {
		s.owner = nil
	}
}

// Shared chains for resources in this module process. The arm creates its chain
// here, and pose sensors look it up by name without holding a reference.
var sharedChains = NewChainRegistry()

func GetSharedChain(name string, dims Dimensions, mode PropagationMode) (*SafeArmChain, error) {
	return sharedChains.Acquire(name, dims, mode)
}

func LookupSharedChain(name string) (*SafeArmChain, error) {
	return sharedChains.Lookup(name)
}

func ReleaseSharedChain(name string) {
	sharedChains.Release(name)
}

func ForceReleaseSharedChain(name string) {
	sharedChains.ForceRelease(name)
}

func GetSharedChainStatus(name string) (int64, bool, string) {
	return sharedChains.Status(name)
}
