package vertical_arm

import (
	"context"
	"os"
	"sort"
	"strings"

	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"
)

var DiscoveryModel = resource.NewModel("devrel", "verticalarm", "discovery")

const poseFileSuffix = "_pose.json"

func init() {
	resource.RegisterService(
		discovery.API,
		DiscoveryModel,
		resource.Registration[discovery.Service, *DiscoveryConfig]{
			Constructor: newDiscovery,
		})
}

// DiscoveryConfig is the configuration for the discovery service
type DiscoveryConfig struct{}

// Validate ensures the config is valid
func (cfg *DiscoveryConfig) Validate(path string) ([]string, []string, error) {
	return nil, nil, nil
}

// armDiscovery implements the discovery service
type armDiscovery struct {
	resource.Named
	resource.AlwaysRebuild
	resource.TriviallyCloseable
	logger logging.Logger
}

func newDiscovery(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (discovery.Service, error) {
	_, err := resource.NativeConfig[*DiscoveryConfig](conf)
	if err != nil {
		return nil, err
	}

	return &armDiscovery{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
	}, nil
}

// DiscoverResources proposes an arm and pose sensor for every saved pose in the
// module data directory, or a single default pair when there are none.
func (dis *armDiscovery) DiscoverResources(ctx context.Context, extra map[string]any) ([]resource.Config, error) {
	dataDir := moduleDataDir()
	dis.logger.Infof("Starting vertical arm discovery in %s", dataDir)

	files := listModuleDataFiles(dataDir, dis.logger)
	poseFiles := filterPoseFiles(files)
	dis.logger.Debugf("Found %d pose files among %d files", len(poseFiles), len(files))

	if len(poseFiles) == 0 {
		dis.logger.Info("No saved poses found, proposing a default arm")
		return generateConfigs(defaultChainName, ""), nil
	}

	var allConfigs []resource.Config
	for _, file := range poseFiles {
		select {
		case <-ctx.Done():
			dis.logger.Info("Discovery cancelled")
			return allConfigs, ctx.Err()
		default:
		}

		suffix := extractPoseSuffix(file)
		allConfigs = append(allConfigs, generateConfigs(suffix, file)...)
	}

	dis.logger.Infof("Discovered %d component configurations", len(allConfigs))
	return allConfigs, nil
}

// generateConfigs creates an arm config and a pose sensor bound to it
func generateConfigs(suffix, poseFile string) []resource.Config {
	armName := "vertical-arm-" + suffix

	armAttrs := map[string]interface{}{
		"chain": suffix,
	}
	if poseFile != "" {
		armAttrs["pose_file"] = poseFile
	}

	sensorAttrs := map[string]interface{}{
		"arm":   armName,
		"chain": suffix,
	}
	if poseFile != "" {
		sensorAttrs["pose_file"] = poseFile
	}

	return []resource.Config{
		{
			Name:       armName,
			API:        arm.API,
			Model:      VerticalArmModel,
			Attributes: armAttrs,
		},
		{
			Name:       "vertical-arm-pose-" + suffix,
			API:        sensor.API,
			Model:      PoseSensorModel,
			Attributes: sensorAttrs,
		},
	}
}

// filterPoseFiles keeps file names of the form <suffix>_pose.json with a usable suffix
func filterPoseFiles(files []string) []string {
	candidates := []string{}
	for _, file := range files {
		if isPoseFile(file) {
			candidates = append(candidates, file)
		}
	}
	return candidates
}

func isPoseFile(file string) bool {
	if !strings.HasSuffix(file, poseFileSuffix) {
		return false
	}
	suffix := extractPoseSuffix(file)
	if suffix == "" {
		return false
	}
	for _, r := range suffix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// extractPoseSuffix extracts the chain name from a pose file name
// left_pose.json -> "left"
// bench-2_pose.json -> "bench-2"
func extractPoseSuffix(file string) string {
	return strings.TrimSuffix(file, poseFileSuffix)
}

// listModuleDataFiles returns the sorted names of regular files in dir
func listModuleDataFiles(dir string, logger logging.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debugf("Failed to read module data dir %s: %v", dir, err)
		return []string{}
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
