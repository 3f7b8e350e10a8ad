package main

import "github.com/storesage/storesage/cmd"

func main() {
	cmd.Execute()
}
