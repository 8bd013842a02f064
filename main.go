package main

import "disco-backend/cmd"

func main() {
	cmd.Run()
}
