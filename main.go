/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/schooldesk/console/cmd"

func main() {
	cmd.Execute()
}
