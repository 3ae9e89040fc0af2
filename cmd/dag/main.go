package main

import "xdao.co/dagstore/internal/cli"

func main() {
	cli.Execute()
}
