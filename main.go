package main

import "auto_report_author/cmd"

func main() {
	cmd.Execute()
}
