package main

import "github.com/apollo/readiness/praectl/cmd"

func main() {
	cmd.Execute()
}
