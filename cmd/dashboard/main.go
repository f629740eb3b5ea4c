package main

import "admin-dashboard/internal/cli"

func main() {
	cli.Execute()
}
