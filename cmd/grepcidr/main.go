// Command grepcidr filters line-oriented input, printing the lines whose
// embedded IPv4/IPv6 addresses fall within a user-supplied set of CIDR,
// single-address, or range patterns.
package main

import "github.com/zlobste/grepcidr/internal/cli"

func main() {
	cli.Execute()
}
