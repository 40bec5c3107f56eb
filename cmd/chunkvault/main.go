// Package main 启动应用程序.
package main

import "github.com/khaznati/chunkvault/pkg/cmd"

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
