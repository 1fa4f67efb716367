package main

import "github.com/mselser95/updown-rounds/cmd"

func main() {
	cmd.Execute()
}
