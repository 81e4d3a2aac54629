package main

import "github.com/frahmantamala/supplier-portal/cmd"

func main() {
	cmd.Execute()
}
