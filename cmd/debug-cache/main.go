package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
)

func main() {
	cfg, err := config.LoadAllConfigs()
	if err != nil {
		log.Fatalf("Fatal error loading config: %v", err)
	}

	db, err := cache.New(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	rdb := db.Client()

	var keys []string
	iter := rdb.Scan(ctx, 0, "dex-assistant-service:*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Fatalf("Failed to scan keys: %v", err)
	}

	for _, key := range keys {
		fmt.Printf("\n--- Key: %s ---\n", key)
		keyType, err := rdb.Type(ctx, key).Result()
		if err != nil {
			log.Printf("Failed to get type for key %s: %v", key, err)
			continue
		}
		fmt.Printf("Type: %s\n", keyType)

		switch keyType {
		case "string":
			if strings.Contains(key, ":audio:") {
				size, _ := rdb.StrLen(ctx, key).Result()
				fmt.Printf("Value: (%d bytes of audio)\n", size)
				continue
			}
			val, err := rdb.Get(ctx, key).Result()
			if err != nil {
				log.Printf("Failed to get string value for key %s: %v", key, err)
				continue
			}
			fmt.Printf("Value: %s\n", val)
		case "list":
			vals, err := rdb.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				log.Printf("Failed to get list value for key %s: %v", key, err)
				continue
			}
			fmt.Printf("Values:\n")
			for _, val := range vals {
				// Pretty print history entries
				if strings.Contains(key, ":history:") {
					var entry cache.HistoryEntry
					if err := json.Unmarshal([]byte(val), &entry); err == nil {
						fmt.Printf("  - [%s] %s: %s\n", entry.Role, entry.Author, entry.Content)
					} else {
						fmt.Printf("  - %s\n", val)
					}
				} else {
					fmt.Printf("  - %s\n", val)
				}
			}
		default:
			fmt.Println("Value: (unsupported type for printing)")
		}
	}
}
