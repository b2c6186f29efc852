package main

import (
	"os"

	"mediaorg/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
