package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("start")
	defer func() {
		os.Exit(3)
	}()
	if len(os.Args) > 5 {
		os.Exit(2) // want "direct os.Exit call in main.main"
	}
	os.Exit(1) // want "direct os.Exit call in main.main"
}
