// Command ashfoxd runs the Ashfox MCP gateway.
package main

import (
	"os"

	"github.com/ashfox/gateway/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
