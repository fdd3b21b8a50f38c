package indisocket

import (
	"strings"
)

// Connection defaults of an INDI daemon.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 7624
	// DefaultProtocolVersion is the INDI protocol version announced in requests.
	DefaultProtocolVersion = "1.7"
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// GetProperties builds a property discovery request, for example
//
//	<getProperties version='1.7' device='CCD Simulator'/>
//
// Empty device or name attributes are left out, asking the daemon for every
// device or every property of the device. An empty version uses
// DefaultProtocolVersion.
func GetProperties(version, device, name string) string {
	if version == "" {
		version = DefaultProtocolVersion
	}

	var b strings.Builder
	b.WriteString("<getProperties")
	writeAttr(&b, "version", version)
	if device != "" {
		writeAttr(&b, "device", device)
	}
	if name != "" {
		writeAttr(&b, "name", name)
	}
	b.WriteString("/>")
	return b.String()
}

func writeAttr(b *strings.Builder, key, value string) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString("='")
	b.WriteString(attrEscaper.Replace(value))
	b.WriteByte('\'')
}
