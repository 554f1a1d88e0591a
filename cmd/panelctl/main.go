package main

import "github.com/oshokin/panel-sentinel/cmd/panelctl/cmd"

func main() {
	cmd.Execute()
}
