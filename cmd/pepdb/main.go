// Command pepdb is the command-line client for the pepdb catalog.
package main

import "github.com/mesh-intelligence/pepdb/internal/cli"

func main() {
	cli.Execute()
}
