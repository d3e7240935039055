package main

import "github.com/jhartmann-dev/dLock/cmd"

func main() {
	cmd.Execute()
}
