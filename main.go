package main

import "github.com/fakeyudi/rumsession/cmd"

func main() {
	cmd.Execute()
}
