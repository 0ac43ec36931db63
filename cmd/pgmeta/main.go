// Command pgmeta reads PostgreSQL system catalogs and prints, serves or
// snapshots what it finds.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:]))
}
