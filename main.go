package main

import "studyspot-backend/cmd"

func main() {
	cmd.Run()
}
