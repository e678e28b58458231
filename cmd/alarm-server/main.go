package main

import "github.com/oshokin/home-alarm/cmd/alarm-server/cmd"

func main() {
	cmd.Execute()
}
