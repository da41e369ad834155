package rabbitmq

import amqp "github.com/rabbitmq/amqp091-go"

// TableCarrier adapts AMQP message headers to propagation.TextMapCarrier.
type TableCarrier amqp.Table

func (c TableCarrier) Get(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (c TableCarrier) Set(key, value string) {
	c[key] = value
}

func (c TableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
