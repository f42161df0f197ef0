package main

// main starts the ec_plotter CLI by running the cobra root command.
func main() {
	Execute()
}
