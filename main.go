package main

import "github.com/theirongolddev/freightdash/cmd"

func main() {
	cmd.Execute()
}
