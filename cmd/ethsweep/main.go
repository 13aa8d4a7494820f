package main

import (
	"github.com/ethsweep/ethsweep/cmd"
)

func main() {
	cmd.Execute()
}
