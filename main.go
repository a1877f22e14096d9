package main

import "github.com/souksili/DatGouv-Visualisation/cmd"

func main() {
	cmd.Execute()
}
