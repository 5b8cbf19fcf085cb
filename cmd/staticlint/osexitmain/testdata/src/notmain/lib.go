package notmain

import "os"

func main() {
	os.Exit(1)
}

func Main() { main() }
