package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	rosterstore "contractor/internal/adapters/storage/roster"
)

func main() {
	schema := rosterstore.GenerateSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	// no argument prints to stdout
	if len(os.Args) < 2 {
		fmt.Println(string(data))
		return
	}

	outputPath := os.Args[1]
	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write schema file: %v", err)
	}
	fmt.Printf("Schema generated successfully at %s\n", outputPath)
}
