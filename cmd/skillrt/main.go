package main

import "github.com/hb-chen/skillrt/cmd"

func main() {
	cmd.Execute()
}
