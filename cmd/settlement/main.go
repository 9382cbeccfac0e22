package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"VoiceHub/config"
	"VoiceHub/events"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
)

// 独立的打款核对进程：消费 payout.created，落对账日志。
// 真正的转账由外部支付系统执行，这里只做核对
type reconcileHandler struct{}

func (reconcileHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event events.PayoutCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}
	log.Printf("settlement: payout %d earnings %d %s/%d amount %.2f",
		event.PayoutID, event.EarningsID, event.BeneficiaryType, event.BeneficiaryID, event.Amount)
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("settlement: load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("settlement: kafka brokers are required")
	}
	saramaCfg, err := events.NewSaramaConfig(&cfg.Kafka)
	if err != nil {
		log.Fatalf("settlement: kafka config: %v", err)
	}

	consumer, err := events.NewConsumer(cfg.Kafka.Brokers, "voicehub-settlement",
		[]string{events.TopicPayoutCreated}, saramaCfg, reconcileHandler{})
	if err != nil {
		log.Fatalf("settlement: create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("settlement: consume: %v", err)
	}
	if err := consumer.Close(); err != nil {
		log.Printf("settlement: close consumer: %v", err)
	}
}
