// Command wzstats serves and queries player statistics through the
// resilient stats client.
package main

func main() {
	Execute()
}
