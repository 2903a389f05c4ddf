package main

import "behaviorgate/internal/cli"

func main() {
	cli.Execute()
}
