// Command aerocheck validates aerospace drawings and bills of materials
// against a compliance rule catalog.
package main

import "github.com/aerocheck/aerocheck/internal/cli"

func main() {
	cli.Execute()
}
