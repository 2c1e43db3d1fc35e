package kernel

// Mailbox passes one word at a time from a sender to a receiver. Send
// returns only after the word has been received.
type Mailbox struct {
	data     uint32
	ready    Semaphore
	received Semaphore
}

// NewMailbox returns an empty mailbox.
func (k *Kernel) NewMailbox() *Mailbox {
	m := new(Mailbox)
	k.InitSemaphore(&m.ready, 0, FIFO)
	k.InitSemaphore(&m.received, 0, FIFO)
	return m
}

// Send stores v and blocks until a receiver has taken it.
func (m *Mailbox) Send(v uint32) {
	m.data = v
	m.ready.BSignal()
	m.received.BWait()
}

// Recv blocks until a word is sent and returns it.
func (m *Mailbox) Recv() uint32 {
	m.ready.BWait()
	v := m.data
	m.received.BSignal()
	return v
}
