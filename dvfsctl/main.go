// Command dvfsctl runs and inspects DVFS engines on simulated boards.
package main

import "github.com/sarchlab/swdvfs/dvfsctl/cmd"

func main() {
	cmd.Execute()
}
