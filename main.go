package main

import "github.com/vhnguyen/sslsweep/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
