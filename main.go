/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/worldclock/apiserver/cmd"

func main() {
	cmd.Execute()
}
