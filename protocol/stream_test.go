package protocol

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// drain collects everything the firmware prints until it stays quiet
func drain(t *testing.T, p Peer) string {
	t.Helper()
	var out []byte
	for {
		b, ok := recvWithin(t, p, 50*time.Millisecond)
		if !ok {
			return string(out)
		}
		out = append(out, b)
	}
}

func TestStreamFormattedOutput(t *testing.T) {
	_, uart, peer := newRig(t, VariantIndependent)
	require.NoError(t, peer.Attach())
	stream := NewStream(uart)

	done := make(chan struct{})
	go func() {
		fmt.Fprintf(stream, "%3d%%\n", 42)
		close(done)
	}()

	require.Equal(t, " 42%\n", drain(t, peer))
	<-done
}

func TestStreamFormattedInput(t *testing.T) {
	_, uart, peer := newRig(t, VariantOCD)
	require.NoError(t, peer.Attach())
	stream := NewStream(uart)

	go func() {
		for _, c := range []byte("123 ") {
			for {
				ok, err := peer.TrySend(c)
				if err != nil || ok {
					break
				}
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	var n int
	_, err := fmt.Fscan(stream, &n)
	require.NoError(t, err)
	require.Equal(t, 123, n)
}

func TestStreamWriteWithoutProbe(t *testing.T) {
	_, uart, _ := newRig(t, VariantShared)
	stream := NewStream(uart)

	n, err := stream.WriteString("dropped")
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Zero(t, stream.Buffered())
}

func TestStreamReadSingleByte(t *testing.T) {
	_, uart, peer := newRig(t, VariantIndependent)
	require.NoError(t, peer.Attach())
	stream := NewStream(uart)

	ok, err := peer.TrySend('h')
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, stream.Buffered())

	buf := make([]byte, 8)
	n, err := stream.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte('h'), buf[0])

	n, err = stream.Read(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}
