package oracle

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Consumer receives randomness fulfillments. Implementations must treat
// unknown and duplicate request IDs as no-ops.
type Consumer interface {
	HandleRandomWords(ctx context.Context, requestID string, words []uint64) error
}

// Oracle issues randomness requests. Responses arrive later, on a separate
// logical turn, through the registered Consumer.
type Oracle interface {
	RequestRandomWords(ctx context.Context, numWords uint32, callbackGasBudget uint32, confirmations uint16) (string, error)
}

// LocalOracle is an in-process oracle. With a fulfillment delay configured it
// answers each request asynchronously with crypto/rand words; with zero delay
// requests stay pending until Fulfill is called, which is how tests and the
// HTTP callback endpoint drive it.
type LocalOracle struct {
	delay time.Duration

	mu       sync.Mutex
	consumer Consumer
	pending  map[string]uint32 // requestID -> numWords
}

func NewLocalOracle(delay time.Duration) *LocalOracle {
	return &LocalOracle{
		delay:   delay,
		pending: make(map[string]uint32),
	}
}

// SetConsumer registers the fulfillment target. Must be called before the
// first request.
func (o *LocalOracle) SetConsumer(c Consumer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumer = c
}

func (o *LocalOracle) RequestRandomWords(_ context.Context, numWords uint32, _ uint32, _ uint16) (string, error) {
	if numWords == 0 {
		return "", fmt.Errorf("oracle: numWords must be positive")
	}

	requestID := uuid.NewString()

	o.mu.Lock()
	o.pending[requestID] = numWords
	o.mu.Unlock()

	if o.delay > 0 {
		go func() {
			time.Sleep(o.delay)
			if err := o.Fulfill(context.Background(), requestID, randomWords(numWords)); err != nil {
				zap.L().Error("oracle fulfillment failed",
					zap.String("request_id", requestID), zap.Error(err))
			}
		}()
	}

	return requestID, nil
}

// Fulfill delivers words for a pending request to the consumer. Unknown
// request IDs are rejected here; the consumer additionally ignores IDs it no
// longer tracks.
func (o *LocalOracle) Fulfill(ctx context.Context, requestID string, words []uint64) error {
	o.mu.Lock()
	_, ok := o.pending[requestID]
	if ok {
		delete(o.pending, requestID)
	}
	consumer := o.consumer
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("oracle: unknown request %s", requestID)
	}
	if consumer == nil {
		return fmt.Errorf("oracle: no consumer registered")
	}
	return consumer.HandleRandomWords(ctx, requestID, words)
}

// Pending reports whether a request is still awaiting fulfillment.
func (o *LocalOracle) Pending(requestID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.pending[requestID]
	return ok
}

// PendingRequests lists request IDs awaiting fulfillment.
func (o *LocalOracle) PendingRequests() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.pending))
	for id := range o.pending {
		ids = append(ids, id)
	}
	return ids
}

func randomWords(n uint32) []uint64 {
	words := make([]uint64, n)
	buf := make([]byte, 8)
	for i := range words {
		if _, err := crand.Read(buf); err != nil {
			panic(err) // crypto/rand does not fail on supported platforms
		}
		words[i] = binary.BigEndian.Uint64(buf)
	}
	return words
}
