package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitshield/procurement/backend/internal/config"
	"github.com/bitshield/procurement/backend/internal/queue"
	"github.com/bitshield/procurement/backend/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bitshield/procurement/backend/pkg/ai"
	oai "github.com/bitshield/procurement/backend/pkg/ai/ollama"
	gai "github.com/bitshield/procurement/backend/pkg/ai/openai"
	"github.com/bitshield/procurement/backend/pkg/analysis/price"
	"github.com/bitshield/procurement/backend/pkg/analysis/risk"
	"github.com/bitshield/procurement/backend/pkg/analysis/similarity"
	"github.com/bitshield/procurement/backend/pkg/analysis/stylometry"
	"github.com/bitshield/procurement/backend/pkg/engine"
	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/logger/console"
	"github.com/bitshield/procurement/backend/pkg/relgraph"
	pgxstore "github.com/bitshield/procurement/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg := config.Load()

	// EmbeddingClient
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.EmbeddingClient

	switch adapter {
	case "ollama":
		client, err := oai.NewEmbeddingClient(oai.NewEmbeddingClientParams{
			Model:   util.GetEnv("AI_EMBED_MODEL"),
			BaseURL: util.GetEnv("AI_EMBED_URL"),
			APIKey:  util.GetEnv("AI_EMBED_KEY"),

			TimeoutMin:            cfg.EmbedTimeoutMin,
			MaxConcurrentRequests: int64(cfg.EmbeddingParallel),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewEmbeddingClient(gai.NewEmbeddingClientParams{
			Model:   util.GetEnv("AI_EMBED_MODEL"),
			BaseURL: util.GetEnv("AI_EMBED_URL"),
			APIKey:  util.GetEnv("AI_EMBED_KEY"),

			TimeoutMin:            cfg.EmbedTimeoutMin,
			MaxConcurrentRequests: int64(cfg.EmbeddingParallel),
		})
	}

	eng := engine.NewEngine(engine.EngineParams{
		Embedder: aiClient,
		Price:    price.NewAnalyzer(cfg.PriceParams()),
		Similarity: similarity.NewAnalyzer(similarity.AnalyzerParams{
			HighThreshold:   cfg.SimilarityHigh,
			MediumThreshold: cfg.SimilarityMedium,
		}),
		Stylometry: stylometry.NewAnalyzer(stylometry.AnalyzerParams{
			HighThreshold:   cfg.StyleHigh,
			MediumThreshold: cfg.StyleMedium,
		}),
		Graph: relgraph.NewBuilder(relgraph.BuilderParams{
			EmailWeight:      cfg.EmailEdgeWeight,
			PhoneWeight:      cfg.PhoneEdgeWeight,
			AddressWeight:    cfg.AddressEdgeWeight,
			DocSimThreshold:  cfg.DocSimEdgeThreshold,
			StyleThreshold:   cfg.StyleEdgeThreshold,
			MinCollusionSize: cfg.MinBiddersForCollusion,
		}),
		Aggregator:       risk.NewAggregator(risk.AggregatorParams{Thresholds: cfg.Thresholds}),
		EmbedParallelism: cfg.EmbeddingParallel,
	})

	// Init pgx client
	poolConfig, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Invalid database URL", "err", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pgConn, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	storage := pgxstore.NewAssessmentDBStorageWithConnection(pgConn)
	if err := storage.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", "err", err)
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.AnalyzeQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one analysis runs
	// at a time per worker; the engine parallelizes internally.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.AnalyzeQueue,
		"analyze_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.AnalyzeQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed")
					return
				}
				startTime := time.Now()
				logger.Info("Received message", "queue", queue.AnalyzeQueue)

				processingErr := queue.ProcessAnalyzeMessage(ctx, eng, storage, string(msg.Body))

				// If there was an error send to retry or dead-letter,
				// otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.AnalyzeQueue, "err", processingErr)
					handleProcessingError(consumerCh, msg, queue.AnalyzeQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.AnalyzeQueue)
				}

				metrics := aiClient.GetMetrics()
				logger.Info(
					"Embedding metrics",
					"requests", metrics.Requests,
					"input_tokens", metrics.InputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration_ms", metrics.DurationMs,
				)

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// If message has been retried 10 times, send to dead-letter
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
