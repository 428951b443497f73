// Package main builds the vertical arm, waits, and rotates one joint
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"
	verticalarm "vertical_arm"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	ctx := context.Background()
	logger := logging.NewLogger("verticalarm-cli")

	c := verticalarm.VerticalArmConfig{}

	joint := 2
	angle := 45.0
	pause := 5 * time.Second
	debug := false

	flag.IntVar(&joint, "joint", joint, "joint to rotate (1 or 2)")
	flag.Float64Var(&angle, "angle", angle, "joint angle in degrees")
	flag.DurationVar(&pause, "pause", pause, "time to wait before posing")
	flag.StringVar(&c.Mode, "mode", c.Mode, "propagation mode: chained or scripted")
	flag.StringVar(&c.PoseFile, "pose-file", c.PoseFile, "pose file to start from")
	flag.BoolVar(&debug, "debug", debug, "debug")

	flag.Parse()

	if debug {
		logger.SetLevel(logging.DEBUG)
	}

	c.Host = verticalarm.NewTableHost(os.Stdout)

	_, _, err := c.Validate("")
	if err != nil {
		return err
	}

	logger.Info("Building vertical arm")
	a, err := verticalarm.NewVerticalArm(ctx, nil, arm.Named("vertical-arm"), &c, logger)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(func() error {
		return a.Close(ctx)
	})
	logger.Info("Vertical arm built")

	logger.Infof("Waiting %s before posing", pause)
	if !utils.SelectContextOrWait(ctx, pause) {
		return ctx.Err()
	}

	logger.Infof("Rotating joint %d to %.2f°", joint, angle)
	if err := a.SetJointAngle(ctx, joint, angle); err != nil {
		return err
	}

	pose, err := a.EndPosition(ctx, nil)
	if err != nil {
		return err
	}
	pt := pose.Point()
	logger.Infof("Tip at X:%.2f, Y:%.2f, Z:%.2f", pt.X, pt.Y, pt.Z)

	return nil
}
