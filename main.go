package main

import "github.com/CosmoTheDev/feishu-notifier/cmd"

func main() {
	cmd.Execute()
}
