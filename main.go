package main

import "github.com/notargets/aderdg/cmd"

func main() {
	cmd.Execute()
}
