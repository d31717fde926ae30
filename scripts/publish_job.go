//go:build ignore

// Публикует задание импорта в stream:poi:import и ждёт итог в stream:poi:import:done.
//
//	go run scripts/publish_job.go -redis localhost:6379 ./data/pois.csv ./data/json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/poi-ingest/internal/domain"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	batchSize := flag.Int("batch-size", 0, "records per transaction, 0 - worker default")
	dryRun := flag.Bool("dry-run", false, "parse and validate only")
	stopOnError := flag.Bool("stop-on-error", false, "stop at the first invalid record")
	wait := flag.Duration("wait", time.Minute, "how long to wait for the done event")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("At least one path is required")
	}

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	job := domain.ImportJob{
		JobID:       uuid.New(),
		Paths:       flag.Args(),
		BatchSize:   *batchSize,
		DryRun:      *dryRun,
		StopOnError: *stopOnError,
	}
	data, err := json.Marshal(job)
	if err != nil {
		log.Fatalf("Failed to marshal job: %v", err)
	}

	// Запоминаем хвост done-стрима до публикации, чтобы не читать старые итоги
	lastID := "$"
	if msgs, err := client.XRevRangeN(ctx, domain.StreamImportDone, "+", "-", 1).Result(); err == nil && len(msgs) > 0 {
		lastID = msgs[0].ID
	}

	msgID, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamImportJobs,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish job: %v", err)
	}

	fmt.Printf("Job published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamImportJobs)
	fmt.Printf("   Message ID: %s\n", msgID)
	fmt.Printf("   Job ID: %s\n", job.JobID)
	fmt.Printf("\nWaiting for result in %s...\n", domain.StreamImportDone)

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{domain.StreamImportDone, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Printf("Read failed: %v", err)
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				raw, _ := msg.Values["data"].(string)

				var done domain.ImportJobDone
				if err := json.Unmarshal([]byte(raw), &done); err != nil || done.JobID != job.JobID {
					continue
				}

				pretty, _ := json.MarshalIndent(done, "", "  ")
				fmt.Printf("\nResult received:\n%s\n", pretty)
				return
			}
		}
	}

	fmt.Println("Timeout waiting for result")
}
