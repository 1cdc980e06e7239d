// Command instantx runs the demo simulations built on the reactive engine.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
