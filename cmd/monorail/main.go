package main

import "github.com/vanpelt/monorail/internal/cmd"

func main() {
	cmd.Execute()
}
