// The main package for the domainscout executable.
package main

import (
	"domainscout/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
