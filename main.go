package main

import "github.com/fakeyudi/sleeptrack/cmd"

func main() {
	cmd.Execute()
}
