/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ebtdb/ebtd/cmd/ebtd/cmd"

func main() {
	cmd.Execute()
}
