package main

import "os"

func main() {
	if err := newRootCmd(defaultDependencies()).Execute(); err != nil {
		os.Exit(1)
	}
}
