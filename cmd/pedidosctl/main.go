// Command pedidosctl runs the order engine from a terminal: extraction,
// product resolution, pickup time parsing and archived order lookups.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
