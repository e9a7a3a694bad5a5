package main

import "github.com/fleetpulse/fleet-telemetry/cmd/fleet-telemetry/cmd"

func main() {
	cmd.Execute()
}
