package main

import "github.com/gaurav-prasanna/newsfold/cmd"

func main() {
	cmd.Execute()
}
