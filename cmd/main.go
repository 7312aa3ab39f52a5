package main

import (
	cmd "github.com/kerbaras/webtoons/cmd/webtoons"
)

func main() {
	cmd.Execute()
}
