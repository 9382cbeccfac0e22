package events

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"VoiceHub/models"

	"github.com/IBM/sarama"
)

// Producer 把礼物与结算事件推给下游（结算核对、数据分析）。
// 事件是尽力而为：发送失败只打日志，绝不让请求失败
type Producer struct {
	producer sarama.SyncProducer
}

func NewProducer(brokers []string, config *sarama.Config) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: producer}, nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

type GiftSentEvent struct {
	GiftID         string    `json:"gift_id"`
	RoomID         uint      `json:"room_id"`
	SenderID       uint      `json:"sender_id"`
	ReceiverHostID uint      `json:"receiver_host_id"`
	Points         int64     `json:"points"`
	SentAt         time.Time `json:"sent_at"`
}

type MonthClosedEvent struct {
	MonthYear      string    `json:"month_year"`
	HostsProcessed int       `json:"hosts_processed"`
	ClosedAt       time.Time `json:"closed_at"`
}

type PayoutCreatedEvent struct {
	PayoutID        uint      `json:"payout_id"`
	EarningsID      uint      `json:"earnings_id"`
	BeneficiaryType string    `json:"beneficiary_type"`
	BeneficiaryID   uint      `json:"beneficiary_id"`
	Amount          float64   `json:"amount"`
	CreatedAt       time.Time `json:"created_at"`
}

func (p *Producer) PublishGiftSent(gift *models.Gift) {
	p.send(TopicGiftSent, strconv.FormatUint(uint64(gift.ReceiverHostID), 10), GiftSentEvent{
		GiftID:         gift.ID,
		RoomID:         gift.RoomID,
		SenderID:       gift.SenderID,
		ReceiverHostID: gift.ReceiverHostID,
		Points:         gift.Points,
		SentAt:         gift.CreatedAt,
	})
}

func (p *Producer) PublishMonthClosed(monthYear string, hostsProcessed int) {
	p.send(TopicMonthClosed, monthYear, MonthClosedEvent{
		MonthYear:      monthYear,
		HostsProcessed: hostsProcessed,
		ClosedAt:       time.Now(),
	})
}

func (p *Producer) PublishPayoutCreated(payout *models.Payout) {
	p.send(TopicPayoutCreated, strconv.FormatUint(uint64(payout.BeneficiaryID), 10), PayoutCreatedEvent{
		PayoutID:        payout.ID,
		EarningsID:      payout.EarningsID,
		BeneficiaryType: string(payout.BeneficiaryType),
		BeneficiaryID:   payout.BeneficiaryID,
		Amount:          payout.Amount,
		CreatedAt:       payout.CreatedAt,
	})
}

func (p *Producer) send(topic, key string, value interface{}) {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		log.Printf("events: marshal %s: %v", topic, err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(jsonValue),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		log.Printf("events: send %s: %v", topic, err)
	}
}
