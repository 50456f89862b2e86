package main

import "s3-object-manager/cmd"

func main() {
	cmd.Execute()
}
