// The main package for the firecrawl-demo executable.
package main

import (
	"github.com/JakeFAU/firecrawl-demo/cmd"
)

func main() {
	cmd.Execute()
}
