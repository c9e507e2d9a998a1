// replyweaver runs the response engine from the command line: encode JSON
// from stdin into any supported body format, or serve a small demo API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
