package main

import "github.com/tonyyueyu/optimization/cmd"

func main() {
	cmd.Execute()
}
