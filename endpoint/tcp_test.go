// File: endpoint/tcp_test.go
// Author: rmstar
// License: Apache-2.0

package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rmstar/grpc/api"
	"github.com/rmstar/grpc/bufseq"
	"github.com/rmstar/grpc/resource"
)

func newTCPRig(t *testing.T, quotaSize int64, opts ...Option) (*TCPEndpoint, net.Conn, *resource.Quota) {
	t.Helper()
	quota := resource.NewQuota("tcp-quota", quotaSize)
	local, remote := net.Pipe()
	all := append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithScheduler(api.InlineScheduler{}),
	}, opts...)
	ep := NewTCP(local, "", quota, all...)
	return ep, remote, quota
}

func TestTCPReadWrite(t *testing.T) {
	ep, remote, _ := newTCPRig(t, 1<<20)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	var dst bufseq.Sequence
	readDone := make(chan error, 1)
	ep.Read(&dst, func(err error) { readDone <- err }, false)

	_, err := remote.Write([]byte("inbound"))
	require.NoError(t, err)
	require.NoError(t, waitCallback(t, readDone))
	require.Equal(t, "inbound", string(dst.Materialize()))

	var src bufseq.Sequence
	src.AppendCopy([]byte("outbound"))
	writeDone := make(chan error, 1)
	ep.Write(&src, func(err error) { writeDone <- err })

	buf := make([]byte, 16)
	n, err := remote.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "outbound", string(buf[:n]))
	require.NoError(t, waitCallback(t, writeDone))

	st := ep.Stats()
	require.Equal(t, int64(7), st["bytes_read"])
	require.Equal(t, int64(8), st["bytes_written"])
	require.Equal(t, int64(1), st["reads_completed"])
	require.Equal(t, int64(1), st["writes_completed"])
}

func TestTCPWriteDrainsMultipleSlices(t *testing.T) {
	ep, remote, _ := newTCPRig(t, 1<<20)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	var src bufseq.Sequence
	src.AppendCopy([]byte("abc"))
	src.AppendCopy([]byte("def"))
	src.AppendCopy([]byte("ghi"))
	done := make(chan error, 1)
	ep.Write(&src, func(err error) { done <- err })

	var got []byte
	buf := make([]byte, 4)
	for len(got) < 9 {
		n, err := remote.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.NoError(t, waitCallback(t, done))
	require.Equal(t, "abcdefghi", string(got))
}

func TestTCPReadEndOfStream(t *testing.T) {
	ep, remote, _ := newTCPRig(t, 1<<20)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	var dst bufseq.Sequence
	done := make(chan error, 1)
	ep.Read(&dst, func(err error) { done <- err }, false)

	require.NoError(t, remote.Close())

	err := waitCallback(t, done)
	require.ErrorIs(t, err, api.ErrSocketClosed)
	require.Equal(t, api.StatusUnavailable, api.StatusOf(err))
	require.Equal(t, 0, dst.Len())
}

func TestTCPWriteFailureAnnotated(t *testing.T) {
	ep, remote, _ := newTCPRig(t, 1<<20)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	require.NoError(t, remote.Close())

	var src bufseq.Sequence
	src.AppendCopy([]byte("doomed"))
	done := make(chan error, 1)
	ep.Write(&src, func(err error) { done <- err })

	err := waitCallback(t, done)
	require.Error(t, err)
	require.Equal(t, api.StatusUnavailable, api.StatusOf(err))
	require.Contains(t, err.Error(), "write failed")
}

func TestTCPShutdownUnblocksPendingRead(t *testing.T) {
	ep, _, _ := newTCPRig(t, 1<<20)
	defer ep.Destroy()

	var dst bufseq.Sequence
	done := make(chan error, 1)
	ep.Read(&dst, func(err error) { done <- err }, false)

	// Give the blocking read a moment to park on the connection.
	time.Sleep(10 * time.Millisecond)
	ep.Shutdown(nil)

	err := waitCallback(t, done)
	require.Error(t, err)
	require.Equal(t, api.StatusUnavailable, api.StatusOf(err))
}

func TestTCPQuotaDenied(t *testing.T) {
	ep, _, _ := newTCPRig(t, 16)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	var dst bufseq.Sequence
	done := make(chan error, 1)
	ep.Read(&dst, func(err error) { done <- err }, false)

	err := waitCallback(t, done)
	require.ErrorIs(t, err, resource.ErrQuotaExhausted)
}

func TestTCPPeerDefaultsToRemoteAddr(t *testing.T) {
	ep, remote, _ := newTCPRig(t, 1<<20)
	defer ep.Destroy()
	defer ep.Shutdown(nil)

	require.Equal(t, remote.LocalAddr().String(), ep.Peer())
	require.False(t, ep.CanTrackErrors())
}

func TestTCPDestroyReleasesQuotaUser(t *testing.T) {
	ep, _, quota := newTCPRig(t, 1<<20)

	ep.Shutdown(nil)
	ep.Destroy()

	require.Eventually(t, func() bool {
		st := quota.Stats()
		return st["users"] == 0 && st["free"] == st["size"]
	}, 5*time.Second, 10*time.Millisecond)
}
