package main

import cmd "github.com/kerbaras/mangadex-dl/cmd/mangas"

func main() {
	cmd.Execute()
}
