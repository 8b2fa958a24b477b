package main

import "ResourceMonitor/pkg/cmd"

func main() {
	cmd.Execute()
}
