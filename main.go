package main

import "github.com/sdkforge/sdkforge-cli/cmd"

func main() {
	cmd.Execute()
}
