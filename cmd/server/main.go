package main

import (
	"github.com/omniwallet/nft-engine/server"
)

func main() {
	server.Run()
}
