package main

import (
	"github.com/pinto-org/tractor-operator/internal/cli"
)

func main() {
	cli.Execute()
}
