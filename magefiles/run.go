//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds and runs the testbed with config.toml, reloading it on change.
func (Run) Demo() error {
	mg.Deps(Build.Demo)
	fmt.Println("Run demo...")
	if _, err := executeCmd("bin/framegraph-demo", withArgs("-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
