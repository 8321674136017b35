package main

import "github.com/tatianab/dungeon-master/internal/cli"

func main() {
	cli.Execute()
}
