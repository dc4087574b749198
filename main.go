package main

import "github.com/josephlewis42/minsh/cmd"

func main() {
	cmd.Execute()
}
