// Command crashy is a fake simulator that dies right after start.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "simulator license not found")
	os.Exit(3)
}
