package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/carepath-ai/platform/pkg/common/config"
	"github.com/carepath-ai/platform/pkg/common/database"
	"github.com/carepath-ai/platform/pkg/common/kafka"
	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
)

// The insights worker tails the intake event stream and maintains simple
// usage counters in Redis for dashboards.
func main() {
	logger.Init()
	cfg := config.Load()

	redisClient := database.NewRedis(cfg)
	consumer := kafka.NewConsumer(cfg, cfg.EventsTopic, cfg.KafkaGroupID+"-insights")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down insights worker...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.EventsTopic).Info("Insights worker consuming")
	err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		return recordEvent(ctx, redisClient, event)
	})
	if err != nil && ctx.Err() == nil {
		logger.Log.WithError(err).Fatal("consumer stopped unexpectedly")
	}
	logger.Log.Info("Insights worker stopped")
}

func recordEvent(ctx context.Context, client *redis.Client, event models.Event) error {
	day := event.Timestamp.UTC().Format("2006-01-02")
	pipe := client.Pipeline()
	pipe.HIncrBy(ctx, "carepath:insights:events", event.Type, 1)
	pipe.HIncrBy(ctx, fmt.Sprintf("carepath:insights:events:%s", day), event.Type, 1)

	if event.Type == "diagnosis_requested" {
		if level, ok := event.Data["recommendation_level"].(string); ok && level != "" {
			pipe.HIncrBy(ctx, "carepath:insights:recommendations", level, 1)
		}
		if urgent, ok := event.Data["urgent"].(bool); ok && urgent {
			pipe.HIncrBy(ctx, "carepath:insights:recommendations", "urgent", 1)
		}
	}
	if event.Type == "feedback_submitted" {
		if rating, ok := event.Data["rating"].(float64); ok {
			pipe.HIncrBy(ctx, "carepath:insights:feedback:ratings", fmt.Sprintf("%d", int(rating)), 1)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Debug("Event counted")
	return nil
}
