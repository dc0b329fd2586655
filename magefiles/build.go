//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the testbed binary into bin/.
func (Build) Demo() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/framegraph-demo", "."), withEnv("CGO_ENABLED=1"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests of every package. glfw and the Vulkan loader need cgo.
func Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withEnv("CGO_ENABLED=1"), withStream()); err != nil {
		return err
	}
	return nil
}
