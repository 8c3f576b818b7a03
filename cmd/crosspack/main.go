// Command crosspack is the native cross-platform package manager CLI.
package main

import "github.com/crosspack/crosspack/internal/cli"

func main() {
	cli.Execute()
}
