// Command crmgrip is the terminal front end for the CRM list views.
package main

import "crmgrip/internal/cli"

func main() {
	cli.Execute()
}
