package main

import "github.com/sessionvault/sessionvault/internal/cmd"

func main() {
	cmd.Execute()
}
