// Command harvest writes the candidate catalog read by the refresh cycle.
package main

func main() {
	Execute()
}
