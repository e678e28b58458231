package main

import "github.com/oshokin/home-alarm/cmd/alarm-ctl/cmd"

func main() {
	cmd.Execute()
}
