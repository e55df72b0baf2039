// Command authsql prints the SQL that provisions a fixed-code user.
//
//	authsql -u alice
//
// The code is prompted for without echo.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/stockkeeper/internal/authsql"
)

func main() {
	username := flag.String("u", "", "username (prompted when empty)")
	flag.Parse()

	if err := authsql.Run(*username, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
