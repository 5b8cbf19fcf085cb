package main

import "os"

var exit = os.Exit

type app struct{}

func (app) main() {
	os.Exit(1)
}

func run() int {
	os.Exit(4)
	return 0
}

func main() {
	app{}.main()
	exit(run())
}
