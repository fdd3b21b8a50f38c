package fakedaemon

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net"
	"strings"
	"time"
)

// Step is one action of a scripted connection.
type Step struct {
	Delay      time.Duration // wait before acting
	Write      string        // bytes to send, sent as they are
	CloseWrite bool          // half-close: the client reads EOF
	Close      bool          // close the whole connection and end the script
}

// Script returns a handler that runs steps in order on every connection,
// then discards whatever the client sends until it disconnects.
func Script(steps ...Step) Handler {
	return HandlerFunc(func(ctx context.Context, conn *net.TCPConn) {
		defer conn.Close()
		stop := closeOnDone(ctx, conn)
		defer stop()

		for _, step := range steps {
			if step.Delay > 0 {
				select {
				case <-time.After(step.Delay):
				case <-ctx.Done():
					return
				}
			}
			if step.Write != "" {
				if _, err := conn.Write([]byte(step.Write)); err != nil {
					return
				}
			}
			if step.CloseWrite {
				_ = conn.CloseWrite()
			}
			if step.Close {
				return
			}
		}

		_, _ = io.Copy(io.Discard, conn)
	})
}

// Properties returns a handler that answers every getProperties request with
// definition, one per line. Each request received is offered to requests
// without blocking; requests may be nil.
func Properties(definition string, requests chan<- string) Handler {
	reply := []byte(definition)
	if !bytes.HasSuffix(reply, []byte("\n")) {
		reply = append(reply, '\n')
	}

	return HandlerFunc(func(ctx context.Context, conn *net.TCPConn) {
		defer conn.Close()
		stop := closeOnDone(ctx, conn)
		defer stop()

		var pending []byte
		chunk := make([]byte, 4096)
		for {
			n, err := conn.Read(chunk)
			pending = append(pending, chunk[:n]...)

			for {
				req, rest, ok := cutRequest(pending)
				if !ok {
					break
				}
				pending = rest
				if requests != nil {
					select {
					case requests <- req:
					default:
					}
				}
				if _, werr := conn.Write(reply); werr != nil {
					return
				}
			}

			if err != nil {
				return
			}
		}
	})
}

// cutRequest extracts the first complete getProperties element from buf.
func cutRequest(buf []byte) (req string, rest []byte, ok bool) {
	start := bytes.Index(buf, []byte("<getProperties"))
	if start < 0 {
		return "", buf, false
	}
	end := bytes.Index(buf[start:], []byte("/>"))
	if end < 0 {
		return "", buf, false
	}
	end += start + len("/>")
	return string(buf[start:end]), buf[end:], true
}

// closeOnDone closes conn when ctx ends. The returned func stops the watcher.
func closeOnDone(ctx context.Context, conn net.Conn) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// SampleDefinition returns a CRLF-terminated property definition stream for
// device, shaped like the output of the INDI CCD simulator.
func SampleDefinition(device string) string {
	dev := escape(device)
	lines := []string{
		`<defSwitchVector device="` + dev + `" name="CONNECTION" label="Connection" group="Main Control" state="Idle" perm="rw" rule="OneOfMany" timeout="60">`,
		`    <defSwitch name="CONNECT" label="Connect">`,
		`Off`,
		`    </defSwitch>`,
		`    <defSwitch name="DISCONNECT" label="Disconnect">`,
		`On`,
		`    </defSwitch>`,
		`</defSwitchVector>`,
		`<defTextVector device="` + dev + `" name="DRIVER_INFO" label="Driver Info" group="General Info" state="Idle" perm="ro" timeout="60">`,
		`    <defText name="DRIVER_NAME" label="Name">`,
		`CCD Simulator`,
		`    </defText>`,
		`</defTextVector>`,
		`<defNumberVector device="` + dev + `" name="CCD_EXPOSURE" label="Expose" group="Main Control" state="Idle" perm="rw" timeout="60">`,
		`    <defNumber name="CCD_EXPOSURE_VALUE" label="Duration (s)" format="%5.2f" min="0.01" max="3600" step="1">`,
		`1`,
		`    </defNumber>`,
		`</defNumberVector>`,
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
