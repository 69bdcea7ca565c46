package main

import "github.com/KaramelBytes/pdspeech-cli/cmd"

func main() {
	cmd.Execute()
}
