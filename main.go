// The main package for the medialib executable.
package main

import (
	"medialib/cmd"
)

func main() {
	cmd.Execute()
}
