package main

import "github.com/idempotentsql/migrate/internal/cli"

func main() {
	cli.Execute()
}
