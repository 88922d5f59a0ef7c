package main

import "github.com/noah-isme/parceltrack/internal/cli"

func main() {
	cli.Execute()
}
