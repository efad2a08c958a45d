package core

// messageLog is an append-only message log in arrival order.
// With a positive limit it keeps only the newest limit records, overwriting
// the oldest slot in place.
type messageLog struct {
	records []*Message
	head    int // oldest record once the buffer is full
	limit   int
	index   map[string]*Message
}

func newMessageLog(limit int) *messageLog {
	capacity := limit
	if capacity <= 0 {
		capacity = 16
	}
	return &messageLog{
		records: make([]*Message, 0, capacity),
		limit:   limit,
		index:   make(map[string]*Message),
	}
}

func (l *messageLog) append(m *Message) {
	if l.limit <= 0 || len(l.records) < l.limit {
		l.records = append(l.records, m)
		l.index[m.ID] = m
		return
	}

	evicted := l.records[l.head]
	delete(l.index, evicted.ID)
	l.records[l.head] = m
	l.index[m.ID] = m
	l.head = (l.head + 1) % l.limit
}

func (l *messageLog) len() int {
	return len(l.records)
}

// at returns the i-th record in chronological order.
func (l *messageLog) at(i int) *Message {
	return l.records[(l.head+i)%len(l.records)]
}

// last returns snapshots of the newest n records, oldest first. n <= 0 returns all.
func (l *messageLog) last(n int) []Message {
	total := l.len()
	if n <= 0 || n > total {
		n = total
	}
	out := make([]Message, 0, n)
	for i := total - n; i < total; i++ {
		out = append(out, l.at(i).Snapshot())
	}
	return out
}

func (l *messageLog) find(id string) *Message {
	return l.index[id]
}
