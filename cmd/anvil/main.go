// Package main is the entry point for anvil.
package main

func main() {
	Execute()
}
