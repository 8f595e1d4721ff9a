package main

import "github.com/Vector-Wangel/lerobot/internal/cli"

func main() {
	cli.Execute()
}
