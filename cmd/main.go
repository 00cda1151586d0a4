package main

import "supportdesk/internal/cli"

func main() {
	cli.Execute()
}
