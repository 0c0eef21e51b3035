package main

import "event-rsvp-backend/cmd"

func main() {
	cmd.Run()
}
