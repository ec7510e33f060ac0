package main

import "github.com/friendsincode/audioengine/cmd"

func main() {
	cmd.Execute()
}
