package main

import "github.com/fakeyudi/ttycap/cmd"

func main() {
	cmd.Execute()
}
