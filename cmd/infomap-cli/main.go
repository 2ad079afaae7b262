// Command infomap-cli runs the map-equation clustering engine against a
// network file and writes the resulting partition in one of the standard
// output formats.
package main

import (
	"github.com/mapequation/infomap-go/cmd/infomap-cli/cmd"
)

func main() {
	cmd.Execute()
}
