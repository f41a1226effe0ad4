// Command oratopg translates Oracle SQL and PL/SQL source text into
// semantically equivalent PostgreSQL source text.
package main

func main() {
	Execute()
}
