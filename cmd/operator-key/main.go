// Command operator-key prints the OPERATOR_KEY_HASH value for an operator key
// read from stdin.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
)

func main() {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("read operator key: %v", err)
	}
	key := strings.TrimSpace(line)
	if len(key) < 12 {
		log.Fatal("operator key must be at least 12 characters")
	}

	hash, err := middleware.HashOperatorKey(key, middleware.DefaultArgon2idParams)
	if err != nil {
		log.Fatalf("hash operator key: %v", err)
	}
	fmt.Println(hash)
}
