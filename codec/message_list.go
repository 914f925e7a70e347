package codec

// MessageList accumulates the messages a single Decode call produces
// before they are forwarded downstream in order.
type MessageList struct {
	msgs []any
}

func (l *MessageList) Add(msg any) { l.msgs = append(l.msgs, msg) }
func (l *MessageList) Len() int    { return len(l.msgs) }
