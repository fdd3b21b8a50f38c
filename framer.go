package indisocket

// Framer splits a byte stream into records delimited by CR or LF.
//
// It holds the pending buffer (bytes received since the last boundary) and
// the queue of completed records not yet delivered. A run of framing bytes
// with no payload in between produces no record, so CRLF terminated input
// yields the same records as LF terminated input.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	pending       []byte
	queue         []frame
	maxRecordSize int
	discarding    bool // dropping an oversized record up to the next boundary
}

// frame is a queue entry: a completed record, or the error that stands in
// for a dropped one.
type frame struct {
	record Record
	err    error
}

// NewFramer creates a Framer. A maxRecordSize of zero or less disables the
// record size limit.
func NewFramer(maxRecordSize int) *Framer {
	return &Framer{maxRecordSize: maxRecordSize}
}

// Feed scans chunk and enqueues every record it completes. The trailing
// partial record stays in the pending buffer until a later chunk closes it.
//
// If a record grows past the size limit it is dropped and bytes are discarded
// up to the next framing byte. ErrRecordTooLarge takes the record's place in
// the queue and is also returned, so callers can count drops. Records
// completed by the same chunk are still enqueued.
func (f *Framer) Feed(chunk []byte) error {
	var err error
	start := 0
	for i, b := range chunk {
		if !isFramingByte(b) {
			continue
		}
		if !f.discarding {
			if e := f.appendPending(chunk[start:i]); e != nil {
				err = e
			} else if len(f.pending) > 0 {
				f.push()
			}
		}
		f.discarding = false
		start = i + 1
	}
	if !f.discarding {
		if e := f.appendPending(chunk[start:]); e != nil {
			err = e
		}
	}
	return err
}

// Next pops the oldest queue entry. ok is false when the queue is empty; err
// is ErrRecordTooLarge where a record was dropped.
func (f *Framer) Next() (r Record, ok bool, err error) {
	if len(f.queue) == 0 {
		return nil, false, nil
	}
	fr := f.queue[0]
	f.queue[0] = frame{}
	f.queue = f.queue[1:]
	if len(f.queue) == 0 {
		f.queue = nil
	}
	return fr.record, true, fr.err
}

// Queued returns the number of entries waiting in the queue.
func (f *Framer) Queued() int {
	return len(f.queue)
}

// Pending returns the number of bytes of the unfinished record.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Reset drops the pending buffer and every queued record.
func (f *Framer) Reset() {
	f.pending = f.pending[:0]
	f.queue = nil
	f.discarding = false
}

func (f *Framer) appendPending(span []byte) error {
	if f.maxRecordSize > 0 && len(f.pending)+len(span) > f.maxRecordSize {
		f.pending = f.pending[:0]
		f.discarding = true
		f.queue = append(f.queue, frame{err: ErrRecordTooLarge})
		return ErrRecordTooLarge
	}
	f.pending = append(f.pending, span...)
	return nil
}

// push moves the pending buffer to the queue as a completed record.
func (f *Framer) push() {
	r := make(Record, len(f.pending))
	copy(r, f.pending)
	f.queue = append(f.queue, frame{record: r})
	f.pending = f.pending[:0]
}
