package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/linchenxuan/tyto/log"
)

// Publisher includes multiple topics.
type Publisher struct {
	lock   sync.RWMutex
	topics map[string]*Topic
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{topics: make(map[string]*Topic)}
}

// NewTopic must create a topic before you can initiate a subscription.
// timeout bounds how long Publish waits for the topic's subscribers; zero
// waits without limit.
func (p *Publisher) NewTopic(topicName string, timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, ok := p.topics[topicName]
	if ok {
		return fmt.Errorf("topic %s already created", topicName)
	}
	p.topics[topicName] = &Topic{
		timeout:     timeout,
		subscribers: []Subscriber{},
	}
	return nil
}

// RegisterSubscriber registers a subscriber.
func (p *Publisher) RegisterSubscriber(topicName string, fn Subscriber) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	topic, ok := p.topics[topicName]
	if !ok {
		return fmt.Errorf("topic %s not created", topicName)
	}

	topic.subscribers = append(topic.subscribers, fn)
	log.Debug().Str("topic", topicName).
		Int("num", len(topic.subscribers)).Msg("add subscriber")
	return nil
}

// Publish delivers the payload to every subscriber of the topic, each on its
// own goroutine, and waits for all of them. When the topic has a timeout and
// some subscriber overruns it, Publish returns an error; the stragglers keep
// running and finish on their own.
func (p *Publisher) Publish(topicName string, param any) error {
	p.lock.RLock()
	topic, ok := p.topics[topicName]
	if !ok {
		p.lock.RUnlock()
		return fmt.Errorf("topic %s not created", topicName)
	}
	subs := make([]Subscriber, len(topic.subscribers))
	copy(subs, topic.subscribers)
	timeout := topic.timeout
	p.lock.RUnlock()

	log.Debug().Str("topic", topicName).Int("subscribers", len(subs)).Msg("publish event")

	var wg sync.WaitGroup
	for _, sub := range subs {
		sub := sub
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub(param)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("topic %s publish timed out after %s", topicName, timeout)
	}
}
