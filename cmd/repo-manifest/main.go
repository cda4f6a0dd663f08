package main

import "github.com/aosc-dev/repo-manifest/cmd/repo-manifest/cmd"

func main() {
	cmd.Execute()
}
