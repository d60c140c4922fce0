package main

import "github.com/jmcruz/skins-arb/cmd"

func main() {
	cmd.Execute()
}
