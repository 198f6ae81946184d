package main

import (
	"fmt"

	"github.com/villager-coder/skynet-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
