package main

import "github.com/aosc-dev/repo-manifest/cmd/repo-redirect/cmd"

func main() {
	cmd.Execute()
}
