package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeCredentialTouch = "credential:touch"

	QueueDefault = "default"
)

type CredentialTouchPayload struct {
	Key    string    `json:"key"`
	UsedAt time.Time `json:"used_at"`
}

func NewCredentialTouchTask(key string, usedAt time.Time, opts ...asynq.Option) (*asynq.Task, error) {
	payload := CredentialTouchPayload{Key: key, UsedAt: usedAt}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	// Touches are bookkeeping; a couple of retries is plenty.
	allOpts := append([]asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(10 * time.Second)}, opts...)

	return asynq.NewTask(TypeCredentialTouch, payloadBytes, allOpts...), nil
}
