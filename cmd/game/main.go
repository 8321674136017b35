// Command game plays a dungeon-master session. It is the same command tree
// as the module root, kept under cmd/ for `go install .../cmd/game`.
package main

import "github.com/tatianab/dungeon-master/internal/cli"

func main() {
	cli.Execute()
}
