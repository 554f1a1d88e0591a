package main

import "github.com/oshokin/panel-sentinel/cmd/panel-sentinel/cmd"

func main() {
	cmd.Execute()
}
