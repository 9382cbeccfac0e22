package main

import (
	"os"

	"VoiceHub/server"

	"github.com/joho/godotenv"
)

func main() {
	// .env 不存在也没关系，线上用真实环境变量
	_ = godotenv.Load()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	s := server.NewServer()
	s.Start(addr)
}
