package main

import "github.com/Seann-Moser/go-bench/cmd"

func main() {
	cmd.Execute()
}
