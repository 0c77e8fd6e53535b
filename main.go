package main

import "github.com/Zerofisher/kismetdb/cmd"

func main() {
	cmd.Execute()
}
