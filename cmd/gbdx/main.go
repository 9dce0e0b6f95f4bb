package main

import "github.com/dangazineu/gbdx/cmd/gbdx/internal"

func main() {
	internal.Execute()
}
