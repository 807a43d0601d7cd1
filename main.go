package main

import "github.com/nick/por-s3/cmd"

func main() {
	cmd.Execute()
}
