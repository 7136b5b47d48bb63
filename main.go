package main

import "github.com/vedsharma/apiplay/cmd"

func main() {
	cmd.Execute()
}
