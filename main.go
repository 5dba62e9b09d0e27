package main

import "github.com/kalhel/postkeep/cmd"

func main() {
	cmd.Execute()
}
