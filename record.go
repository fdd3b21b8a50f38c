package indisocket

// Record is one framed unit of the daemon's reply stream: a maximal run of
// bytes between CR/LF delimiters. It never contains CR or LF.
//
// The empty record is the sentinel Read returns after Terminate.
type Record []byte

// Len returns the length of the record in bytes.
func (r Record) Len() int {
	return len(r)
}

// IsSentinel reports whether r is the empty shutdown sentinel.
func (r Record) IsSentinel() bool {
	return len(r) == 0
}

// String returns the record decoded as text.
func (r Record) String() string {
	return string(r)
}

// isFramingByte reports whether b closes a record.
func isFramingByte(b byte) bool {
	return b == '\r' || b == '\n'
}
