package main

import "optimahub/internal/app/server"

func main() {
	server.Run()
}
