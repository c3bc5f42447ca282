package main

import "github.com/animetrics/anilist-crawler/cmd/anilist-crawler/cmd"

func main() {
	cmd.Execute()
}
