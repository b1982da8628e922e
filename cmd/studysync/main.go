// Package main is the entry point for the studysync CLI.
package main

import "github.com/studysync/studysync-cli/internal/cli"

func main() {
	cli.Execute()
}
