package main

import "os"

func main() {
	if err := newRootCmd(wireFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
