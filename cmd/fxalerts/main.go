package main

import (
	"fx-price-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
