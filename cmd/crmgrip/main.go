package main

import "crmgrip/internal/cli"

func main() {
	cli.Execute()
}
