package main

import "github.com/CosmoTheDev/sonar-teams-notifier/cmd"

func main() {
	cmd.Execute()
}
